package domain

import "errors"

var (
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("invalid input")
	// ErrQuizNotFound indicates the referenced quiz does not exist (or is not
	// visible to the caller).
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a referenced question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrForbidden indicates the quiz exists but belongs to another owner.
	ErrForbidden = errors.New("quiz not owned by caller")
	// ErrInsufficientData indicates the owner has no questions to build a
	// mock exam from.
	ErrInsufficientData = errors.New("no questions available for mock exam")
	// ErrCorruptOptions indicates a stored options payload failed to
	// deserialize. This is a data integrity fault, not a caller error.
	ErrCorruptOptions = errors.New("corrupt options payload")
)
