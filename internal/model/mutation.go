package model

import "io"

// Drafts and patches use Go field names on the client side; the REST
// client owns the translation to wire field names.

type TicketDraft struct {
	Title       string
	Description string
	Priority    string
	Category    string
}

type TicketPatch struct {
	Title          *string
	Description    *string
	Priority       *string
	Status         *string
	Category       *string
	AssignedTo     *ID
	AssignedToName *string
	EstimatedTime  *string
}

type TodoDraft struct {
	Title       string
	Description string
	Status      string
	AssignedTo  []ID
	Tags        []string
	StoryPoints *int
	Project     *string
	DueDate     *string
}

type TodoPatch struct {
	Title           *string
	Description     *string
	Status          *string
	AssignedTo      *[]ID
	Tags            *[]string
	StoryPoints     *int
	InFocus         *bool
	Read            *bool
	Project         *string
	DueDate         *string
	BackgroundImage *string
}

type UserDraft struct {
	Username string
	Email    string
	Password string
	Role     Role
}

type UserPatch struct {
	Username *string
	Email    *string
	Password *string
	Role     *Role
	Blocked  *bool
}

// Credentials is the login request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the self-service sign-up request.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// AuthResult is the login/register response.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Upload is a file attached to a multipart request.
type Upload struct {
	Filename string
	Content  io.Reader
}

type InventoryDraft struct {
	Name         string
	Category     string
	SerialNumber string
	Location     string
	AssignedTo   *ID
	Image        *Upload
}
