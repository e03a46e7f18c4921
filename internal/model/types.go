package model

type Role string

const (
	RoleAdmin Role = "admin"
	RoleIT    Role = "it"
	RoleUser  Role = "user"
)

// Privileged reports whether the role sees every entity.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleIT
}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusClosed     = "closed"
)

const (
	CategoryHardware = "hardware"
	CategorySoftware = "software"
	CategoryNetwork  = "network"
	CategoryAccount  = "account"
	CategoryOther    = "other"
)

// TodoStatusArchived is the status local-first mode assigns instead of
// deleting a card.
const TodoStatusArchived = "archived"

var AllowedPriorities = map[string]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
}

var AllowedTicketStatus = map[string]struct{}{
	TicketStatusOpen:       {},
	TicketStatusInProgress: {},
	TicketStatusClosed:     {},
}

type User struct {
	ID        ID        `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	Blocked   bool      `json:"blocked"`
	CreatedAt Timestamp `json:"created_at"`
}

type Comment struct {
	ID         ID        `json:"id"`
	Text       string    `json:"text"`
	AuthorID   ID        `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  Timestamp `json:"created_at"`
}

type Ticket struct {
	ID             ID        `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	Category       string    `json:"category"`
	CreatedBy      ID        `json:"created_by"`
	CreatedByName  string    `json:"created_by_name"`
	CreatedByEmail string    `json:"created_by_email"`
	AssignedTo     *ID       `json:"assigned_to"`
	AssignedToName *string   `json:"assigned_to_name"`
	EstimatedTime  *string   `json:"estimated_time"`
	CreatedAt      Timestamp `json:"created_at"`
	UpdatedAt      Timestamp `json:"updated_at"`
	Comments       []Comment `json:"comments"`
}

func (t Ticket) EntityID() ID { return t.ID }

func (t Ticket) CreatorID() ID { return t.CreatedBy }

// AssignedToUser reports whether the ticket is assigned to id.
func (t Ticket) AssignedToUser(id ID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == id
}

type ChecklistItem struct {
	ID        ID        `json:"id"`
	Text      string    `json:"text"`
	Checked   bool      `json:"checked"`
	CreatedAt Timestamp `json:"created_at"`
}

type Attachment struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt Timestamp `json:"created_at"`
}

type Todo struct {
	ID              ID              `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Status          string          `json:"status"`
	AssignedTo      []ID            `json:"assigned_to"`
	Tags            []string        `json:"tags"`
	StoryPoints     *int            `json:"story_points"`
	InFocus         bool            `json:"in_focus"`
	Read            bool            `json:"read"`
	Project         *string         `json:"project"`
	DueDate         *string         `json:"due_date"`
	BackgroundImage *string         `json:"background_image"`
	CreatedBy       ID              `json:"created_by"`
	CreatedAt       Timestamp       `json:"created_at"`
	UpdatedAt       Timestamp       `json:"updated_at"`
	Comments        []Comment       `json:"comments"`
	Checklist       []ChecklistItem `json:"todo_lists"`
	Attachments     []Attachment    `json:"attachments"`
}

func (t Todo) EntityID() ID { return t.ID }

func (t Todo) CreatorID() ID { return t.CreatedBy }

// AssignedToUser reports whether id is among the card's assignees.
func (t Todo) AssignedToUser(id ID) bool {
	for _, assignee := range t.AssignedTo {
		if assignee == id {
			return true
		}
	}
	return false
}

type InventoryItem struct {
	ID           ID        `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	SerialNumber string    `json:"serial_number"`
	Location     string    `json:"location"`
	AssignedTo   *ID       `json:"assigned_to"`
	ImageURL     *string   `json:"image_url"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
}
