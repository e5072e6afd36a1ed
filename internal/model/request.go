package model

import (
	"strings"
	"time"
)

// CredentialsRequest is the body of both /register and /login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Normalize trims the username. Passwords are taken verbatim.
func (r *CredentialsRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r CredentialsRequest) Complete() bool {
	return r.Username != "" && r.Password != ""
}

type BookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Year        int    `json:"year"`
	Description string `json:"description"`
}

// Validate returns the name of the first offending field, or "".
func (r *BookRequest) Validate() string {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.Description = strings.TrimSpace(r.Description)

	switch {
	case r.Title == "":
		return "title"
	case r.Author == "":
		return "author"
	case r.Year < 0 || r.Year > time.Now().Year()+1:
		return "year"
	}

	return ""
}
