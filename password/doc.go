// Package password hashes account passwords with Argon2id for the development
// Kinvex API.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The client never sees these hashes; only the fake and mock API servers store
// them.
package password
