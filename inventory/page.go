package inventory

import (
	"net/url"
	"strconv"
)

// Direction is a sort order.
type Direction string

const (
	// Asc sorts ascending.
	Asc Direction = "ASC"
	// Desc sorts descending.
	Desc Direction = "DESC"
)

// PageRequest selects one page of a listing. Page is zero-based.
type PageRequest struct {
	Page      int
	Size      int
	Sort      string
	Direction Direction
}

const defaultPageSize = 20

// values encodes r as query parameters, defaulting the page size and the sort
// direction to def.
func (r PageRequest) values(def Direction) url.Values {
	v := url.Values{}
	size := r.Size
	if size <= 0 {
		size = defaultPageSize
	}
	page := r.Page
	if page < 0 {
		page = 0
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("size", strconv.Itoa(size))
	if r.Sort != "" {
		dir := r.Direction
		if dir == "" {
			dir = def
		}
		v.Set("sort", r.Sort)
		v.Set("direction", string(dir))
	}
	return v
}

// Page is one page of a listing, in the Spring Data page shape the API returns.
type Page[T any] struct {
	Content          []T  `json:"content"`
	TotalElements    int  `json:"totalElements"`
	TotalPages       int  `json:"totalPages"`
	Size             int  `json:"size"`
	Number           int  `json:"number"`
	First            bool `json:"first"`
	Last             bool `json:"last"`
	NumberOfElements int  `json:"numberOfElements"`
	Empty            bool `json:"empty"`
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool {
	return !p.Last
}

// HasPrevious reports whether an earlier page exists.
func (p Page[T]) HasPrevious() bool {
	return !p.First
}

// IsEmpty reports whether the page holds no items.
func (p Page[T]) IsEmpty() bool {
	return p.Empty || len(p.Content) == 0
}

// NewPage slices all into the page selected by r. Servers and tests use it to
// build responses.
func NewPage[T any](all []T, r PageRequest) Page[T] {
	size := r.Size
	if size <= 0 {
		size = defaultPageSize
	}
	number := max(r.Page, 0)
	total := len(all)
	pages := (total + size - 1) / size

	start := min(number*size, total)
	end := min(start+size, total)
	content := append([]T(nil), all[start:end]...)
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:          content,
		TotalElements:    total,
		TotalPages:       pages,
		Size:             size,
		Number:           number,
		First:            number == 0,
		Last:             number >= pages-1,
		NumberOfElements: len(content),
		Empty:            len(content) == 0,
	}
}
