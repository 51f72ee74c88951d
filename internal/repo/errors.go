package repo

import "errors"

var (
	// ErrNotFound — run с таким ID нет в хранилище.
	ErrNotFound = errors.New("run not found")

	// ErrAlreadyExists — run с таким ID уже сохранён.
	ErrAlreadyExists = errors.New("run already exists")

	// ErrInvalidState — run уже в финальном статусе и не может меняться.
	ErrInvalidState = errors.New("run already finished")
)
