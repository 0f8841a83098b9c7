// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Mode selects the game mode.
type Mode string

// Game modes.
const (
	ModeEndless Mode = "endless"
	ModeDaily   Mode = "daily"
)

// ParseMode validates a mode literal.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEndless, ModeDaily:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected daily or endless)", s)
	}
}

// Difficulty of a daily quote.
type Difficulty string

// Daily difficulties in challenge order.
const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the daily difficulties in the order they are played.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// Next returns the difficulty that follows d. Hard is terminal.
func (d Difficulty) Next() Difficulty {
	switch d {
	case Easy:
		return Medium
	default:
		return Hard
	}
}

// PlayConfig defines settings for the terminal game.
type PlayConfig struct {
	Mode      Mode
	Words     int
	Server    string
	Token     string
	UserID    string
	Username  string
	WordsPath string
	Lang      string
}

// ServerConfig defines settings for the HTTP API.
type ServerConfig struct {
	Addr           string
	DBPath         string
	TokenSecret    string
	AllowedOrigins []string
	RateLimit      int
}

// SessionSubmission is the payload sent when a session completes.
type SessionSubmission struct {
	Mode           Mode `json:"mode"`
	WPM            int  `json:"wpm"`
	TotalWords     int  `json:"totalWords"`
	CorrectWords   int  `json:"correctWords"`
	IncorrectWords int  `json:"incorrectWords"`
}

// GameSession is a persisted, completed attempt.
type GameSession struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"userId"`
	Mode           Mode      `json:"mode"`
	WPM            int       `json:"wpm"`
	TotalWords     int       `json:"totalWords"`
	CorrectWords   int       `json:"correctWords"`
	IncorrectWords int       `json:"incorrectWords"`
	XPDelta        int       `json:"xpDelta"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PlayerProgress is the persisted level state of a player.
type PlayerProgress struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Level     int       `json:"level"`
	XP        int       `json:"xp"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionResult is returned after a session has been recorded.
type SessionResult struct {
	Session  GameSession    `json:"session"`
	Progress PlayerProgress `json:"progress"`
}

// DailyStatus reports whether the daily challenge was already completed.
type DailyStatus struct {
	CompletedToday        bool  `json:"completedToday"`
	TimeUntilResetSeconds int64 `json:"timeUntilResetSeconds"`
}

// LevelEntry is a row of the levels leaderboard.
type LevelEntry struct {
	Rank      int        `json:"rank"`
	UserID    string     `json:"userId"`
	Username  string     `json:"username"`
	Level     int        `json:"level"`
	XP        int        `json:"xp"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// WPMEntry is a row of today's daily WPM leaderboard.
type WPMEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	WPM      int    `json:"wpm"`
}
