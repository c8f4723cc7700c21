package tokenstore

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minPassBytes          = 8
	sealAlgorithm         = "argon2id+xchacha20poly1305"
	sealVersion           = 1
)

// SealConfig tunes the argon2id derivation of the file encryption key.
type SealConfig struct {
	Passphrase  string
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
}

// DefaultSealConfig returns interactive-grade argon2id parameters.
func DefaultSealConfig(passphrase string) SealConfig {
	return SealConfig{
		Passphrase:  passphrase,
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
	}
}

func (c SealConfig) validate() error {
	if len(c.Passphrase) < minPassBytes {
		return fmt.Errorf("seal passphrase must be at least %d bytes", minPassBytes)
	}
	if c.Memory < minMemoryKB {
		return fmt.Errorf("seal memory must be >= %d KB", minMemoryKB)
	}
	if c.Time < minTimeCost {
		return errors.New("seal time cost must be >= 1")
	}
	if c.Parallelism < minParallelism {
		return errors.New("seal parallelism must be >= 1")
	}
	if c.SaltLength < minSaltLength {
		return fmt.Errorf("seal salt length must be >= %d", minSaltLength)
	}
	return nil
}

type sealedEnvelope struct {
	Version     int    `json:"v"`
	Algorithm   string `json:"alg"`
	Memory      uint32 `json:"m"`
	Time        uint32 `json:"t"`
	Parallelism uint8  `json:"p"`
	Salt        string `json:"salt"`
	Nonce       string `json:"nonce"`
	Data        string `json:"data"`
}

// sealer caches the derived key for the salt it was derived with, so only the first
// read or write of a session pays for argon2id.
type sealer struct {
	cfg  SealConfig
	salt []byte
	key  []byte
}

func newSealer(cfg SealConfig) (*sealer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &sealer{cfg: cfg}, nil
}

func (s *sealer) derive(salt []byte, memory, time uint32, parallelism uint8) []byte {
	return argon2.IDKey([]byte(s.cfg.Passphrase), salt, time, memory, parallelism, chacha20poly1305.KeySize)
}

func (s *sealer) seal(plaintext []byte) (sealedEnvelope, error) {
	if s.key == nil {
		salt := make([]byte, s.cfg.SaltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return sealedEnvelope{}, err
		}
		s.salt = salt
		s.key = s.derive(salt, s.cfg.Memory, s.cfg.Time, s.cfg.Parallelism)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return sealedEnvelope{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return sealedEnvelope{}, err
	}

	return sealedEnvelope{
		Version:     sealVersion,
		Algorithm:   sealAlgorithm,
		Memory:      s.cfg.Memory,
		Time:        s.cfg.Time,
		Parallelism: s.cfg.Parallelism,
		Salt:        base64.RawStdEncoding.EncodeToString(s.salt),
		Nonce:       base64.RawStdEncoding.EncodeToString(nonce),
		Data:        base64.RawStdEncoding.EncodeToString(aead.Seal(nil, nonce, plaintext, []byte(sealAlgorithm))),
	}, nil
}

func (s *sealer) open(env sealedEnvelope) ([]byte, error) {
	if env.Version != sealVersion || env.Algorithm != sealAlgorithm {
		return nil, ErrSealed
	}
	if env.Memory < minMemoryKB || env.Time < minTimeCost || env.Parallelism < minParallelism {
		return nil, ErrSealed
	}
	salt, err := base64.RawStdEncoding.DecodeString(env.Salt)
	if err != nil || uint32(len(salt)) < minSaltLength {
		return nil, ErrSealed
	}
	nonce, err := base64.RawStdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrSealed
	}
	data, err := base64.RawStdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, ErrSealed
	}

	key := s.key
	if key == nil || string(salt) != string(s.salt) {
		key = s.derive(salt, env.Memory, env.Time, env.Parallelism)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, data, []byte(sealAlgorithm))
	if err != nil {
		return nil, ErrSealed
	}

	// Reuse the file's salt for subsequent writes.
	s.salt = salt
	s.key = key
	return plaintext, nil
}
