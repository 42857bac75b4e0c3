package domain

import "errors"

var (
	// ErrNameTaken is returned when a username is already registered.
	ErrNameTaken = errors.New("username already taken")
	// ErrGameInProgress is returned when a start command arrives while a session is active.
	ErrGameInProgress = errors.New("a game is already in progress")
	// ErrInsufficientPlayers is returned when fewer than two players are connected.
	ErrInsufficientPlayers = errors.New("at least 2 connected players are required")
	// ErrNoQuestionsLoaded is returned when a game is started without questions.
	ErrNoQuestionsLoaded = errors.New("no questions loaded")
	// ErrInvalidRoundCount is returned when the requested round count is out of range.
	ErrInvalidRoundCount = errors.New("round count must be between 1 and the number of available questions")
	// ErrSetNotFound indicates the question set could not be loaded.
	ErrSetNotFound = errors.New("question set not found")
)
