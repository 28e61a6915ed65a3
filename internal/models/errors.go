package models

import "fmt"

// FetchError — сетевая ошибка, тайм-аут или неуспешный HTTP-статус при загрузке ленты.
type FetchError struct {
	URL        string
	Timeout    bool
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("fetch %s: timed out: %v", e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError — документ получен, но не разобран как RSS/Atom.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ItemShapeError — у отдельного элемента нет обязательного поля.
type ItemShapeError struct {
	Source string
	Index  int
	Field  string
}

func (e *ItemShapeError) Error() string {
	return fmt.Sprintf("item %d of %s: missing %s", e.Index, e.Source, e.Field)
}
