package model

type EventType string

// Server→client frame types.
const (
	EventTypeConnected            EventType = "connected"
	EventTypeSubscribed           EventType = "subscribed"
	EventTypeUnsubscribed         EventType = "unsubscribed"
	EventTypePong                 EventType = "pong"
	EventTypeTicketCreated        EventType = "ticket_created"
	EventTypeTicketUpdated        EventType = "ticket_updated"
	EventTypeTicketDeleted        EventType = "ticket_deleted"
	EventTypeCommentAdded         EventType = "comment_added"
	EventTypeTodoCreated          EventType = "todo_created"
	EventTypeTodoUpdated          EventType = "todo_updated"
	EventTypeTodoDeleted          EventType = "todo_deleted"
	EventTypeTodoCommentAdded     EventType = "todo_comment_added"
	EventTypeTodoListItemAdded    EventType = "todo_list_item_added"
	EventTypeTodoListItemUpdated  EventType = "todo_list_item_updated"
	EventTypeTodoListItemDeleted  EventType = "todo_list_item_deleted"
	EventTypeColumnsUpdated       EventType = "columns_updated"
)

// Client-local lifecycle events. They never appear on the wire.
const (
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"
)

// Client→server frame types.
const (
	FrameTypePing              = "ping"
	FrameTypeSubscribeTicket   = "subscribe_ticket"
	FrameTypeUnsubscribeTicket = "unsubscribe_ticket"
)

var websocketEventTypes = []EventType{
	EventTypeConnected,
	EventTypeSubscribed,
	EventTypeUnsubscribed,
	EventTypePong,
	EventTypeTicketCreated,
	EventTypeTicketUpdated,
	EventTypeTicketDeleted,
	EventTypeCommentAdded,
	EventTypeTodoCreated,
	EventTypeTodoUpdated,
	EventTypeTodoDeleted,
	EventTypeTodoCommentAdded,
	EventTypeTodoListItemAdded,
	EventTypeTodoListItemUpdated,
	EventTypeTodoListItemDeleted,
	EventTypeColumnsUpdated,
}

func WebSocketEventTypes() []EventType {
	out := make([]EventType, len(websocketEventTypes))
	copy(out, websocketEventTypes)
	return out
}

// ClientFrame is what the client writes to the socket.
type ClientFrame struct {
	Type     string `json:"type"`
	TicketID *ID    `json:"ticket_id,omitempty"`
}
