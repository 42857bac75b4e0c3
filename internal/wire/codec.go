// Package wire implements the pipe-delimited text protocol spoken between
// the trivia server and its clients. Inbound lines are parsed into tagged
// message values at the transport boundary so the rest of the server never
// inspects raw prefixes.
package wire

import (
	"fmt"
	"strings"

	"suquid-trivia-server/internal/domain"
)

const answerPrefix = "ANS:"

// ClientMessage is a message received from a client after authentication.
type ClientMessage interface{ isClientMessage() }

// Answer is a round answer submission (ANS:<X>, X one of A, B, C).
type Answer struct {
	Option string
}

// Unknown wraps any inbound line that does not decode to a known message.
// The server logs and ignores it; no protocol error is sent back.
type Unknown struct {
	Raw string
}

func (Answer) isClientMessage()  {}
func (Unknown) isClientMessage() {}

// ParseClient decodes one inbound line. The initial username line is
// positional and read directly by the connection handler; everything after
// authentication goes through here.
func ParseClient(line string) ClientMessage {
	if rest, ok := strings.CutPrefix(line, answerPrefix); ok {
		option := strings.ToUpper(strings.TrimSpace(rest))
		if domain.ValidOption(option) {
			return Answer{Option: option}
		}
	}
	return Unknown{Raw: line}
}

// ServerMessage is any message the server sends to a client. Encoded
// messages carry no trailing newline; the transport appends the frame
// terminator.
type ServerMessage interface {
	Encode() string
}

// AuthOK acknowledges a successful registration.
type AuthOK struct{}

// AuthReject tells a client its username was refused.
type AuthReject struct{}

// GameStart announces the beginning of a session to all players.
type GameStart struct{}

// GameOver announces the end of a session to all players.
type GameOver struct{}

// Question broadcasts the current question and its three options.
type Question struct {
	Prompt  string
	Options [3]string
}

// Score is the personalized round result: whether the recipient was right,
// the points they earned this round, their running total, and the ranked
// scoreboard. The scoreboard is embedded as newline-joined
// <rank>-<username>-<score> lines, so a Score frame spans multiple lines on
// the wire; clients treat the terminating newline as the frame boundary.
type Score struct {
	Correct    bool
	Points     int
	Total      int
	Scoreboard []domain.ScoreboardRow
}

// Disconnect notifies remaining players that a peer left.
type Disconnect struct {
	Username string
}

func (AuthOK) Encode() string     { return "OK" }
func (AuthReject) Encode() string { return "REJECT" }
func (GameStart) Encode() string  { return "GAME_START" }
func (GameOver) Encode() string   { return "GAME_OVER" }

func (q Question) Encode() string {
	return fmt.Sprintf("QUES|%s|%s|%s|%s", q.Prompt, q.Options[0], q.Options[1], q.Options[2])
}

func (s Score) Encode() string {
	result := "Wrong"
	if s.Correct {
		result = "Correct"
	}
	return fmt.Sprintf("SCORE|%s|%d|%d|%s", result, s.Points, s.Total, EncodeScoreboard(s.Scoreboard))
}

func (d Disconnect) Encode() string {
	return "DISCONNECT|" + d.Username
}

// EncodeScoreboard renders rows as newline-joined <rank>-<username>-<score> lines.
func EncodeScoreboard(rows []domain.ScoreboardRow) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%d-%s-%d", row.Rank, row.Username, row.Score))
	}
	return strings.Join(lines, "\n")
}
