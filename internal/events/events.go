// Package events turns raw websocket frames into typed domain events.
//
// Every frame kind the server can send maps to exactly one concrete type
// implementing Event. Consumers handle them through Visitor, so adding a
// kind is a compile error everywhere it is not handled.
package events

import (
	"github.com/simonjohansson/deskboard/internal/model"
)

// Event is the closed set of events dispatched by the connection manager.
type Event interface {
	Kind() model.EventType
	Accept(v Visitor)
	sealed()
}

// Visitor has one method per event kind.
type Visitor interface {
	VisitConnected(Connected)
	VisitSubscribed(Subscribed)
	VisitUnsubscribed(Unsubscribed)
	VisitPong(Pong)
	VisitTicketCreated(TicketCreated)
	VisitTicketUpdated(TicketUpdated)
	VisitTicketDeleted(TicketDeleted)
	VisitCommentAdded(CommentAdded)
	VisitTodoCreated(TodoCreated)
	VisitTodoUpdated(TodoUpdated)
	VisitTodoDeleted(TodoDeleted)
	VisitTodoCommentAdded(TodoCommentAdded)
	VisitChecklistItemAdded(ChecklistItemAdded)
	VisitChecklistItemUpdated(ChecklistItemUpdated)
	VisitChecklistItemDeleted(ChecklistItemDeleted)
	VisitColumnsUpdated(ColumnsUpdated)
	VisitDisconnected(Disconnected)
	VisitTransportError(TransportError)
}

type Connected struct {
	Message string
}

type Subscribed struct {
	TicketID model.ID
}

type Unsubscribed struct {
	TicketID model.ID
}

type Pong struct{}

type TicketCreated struct {
	Ticket model.Ticket
}

type TicketUpdated struct {
	Ticket model.Ticket
}

type TicketDeleted struct {
	TicketID model.ID
}

// CommentAdded carries the whole parent ticket, comments included.
type CommentAdded struct {
	Ticket model.Ticket
}

type TodoCreated struct {
	Todo model.Todo
}

type TodoUpdated struct {
	Todo model.Todo
}

type TodoDeleted struct {
	TodoID model.ID
}

type TodoCommentAdded struct {
	Todo model.Todo
}

// Checklist events carry the whole parent todo.
type ChecklistItemAdded struct {
	Todo model.Todo
}

type ChecklistItemUpdated struct {
	Todo model.Todo
}

type ChecklistItemDeleted struct {
	Todo model.Todo
}

type ColumnsUpdated struct {
	Columns []model.Column
}

// Disconnected is emitted locally whenever the socket closes.
type Disconnected struct {
	Code   int
	Reason string
}

// TransportError is emitted locally for socket errors. It never ends the
// session on its own; a Disconnected follows when the socket closes.
type TransportError struct {
	Err error
}

func (Connected) Kind() model.EventType            { return model.EventTypeConnected }
func (Subscribed) Kind() model.EventType           { return model.EventTypeSubscribed }
func (Unsubscribed) Kind() model.EventType         { return model.EventTypeUnsubscribed }
func (Pong) Kind() model.EventType                 { return model.EventTypePong }
func (TicketCreated) Kind() model.EventType        { return model.EventTypeTicketCreated }
func (TicketUpdated) Kind() model.EventType        { return model.EventTypeTicketUpdated }
func (TicketDeleted) Kind() model.EventType        { return model.EventTypeTicketDeleted }
func (CommentAdded) Kind() model.EventType         { return model.EventTypeCommentAdded }
func (TodoCreated) Kind() model.EventType          { return model.EventTypeTodoCreated }
func (TodoUpdated) Kind() model.EventType          { return model.EventTypeTodoUpdated }
func (TodoDeleted) Kind() model.EventType          { return model.EventTypeTodoDeleted }
func (TodoCommentAdded) Kind() model.EventType     { return model.EventTypeTodoCommentAdded }
func (ChecklistItemAdded) Kind() model.EventType   { return model.EventTypeTodoListItemAdded }
func (ChecklistItemUpdated) Kind() model.EventType { return model.EventTypeTodoListItemUpdated }
func (ChecklistItemDeleted) Kind() model.EventType { return model.EventTypeTodoListItemDeleted }
func (ColumnsUpdated) Kind() model.EventType       { return model.EventTypeColumnsUpdated }
func (Disconnected) Kind() model.EventType         { return model.EventTypeDisconnected }
func (TransportError) Kind() model.EventType       { return model.EventTypeError }

func (e Connected) Accept(v Visitor)            { v.VisitConnected(e) }
func (e Subscribed) Accept(v Visitor)           { v.VisitSubscribed(e) }
func (e Unsubscribed) Accept(v Visitor)         { v.VisitUnsubscribed(e) }
func (e Pong) Accept(v Visitor)                 { v.VisitPong(e) }
func (e TicketCreated) Accept(v Visitor)        { v.VisitTicketCreated(e) }
func (e TicketUpdated) Accept(v Visitor)        { v.VisitTicketUpdated(e) }
func (e TicketDeleted) Accept(v Visitor)        { v.VisitTicketDeleted(e) }
func (e CommentAdded) Accept(v Visitor)         { v.VisitCommentAdded(e) }
func (e TodoCreated) Accept(v Visitor)          { v.VisitTodoCreated(e) }
func (e TodoUpdated) Accept(v Visitor)          { v.VisitTodoUpdated(e) }
func (e TodoDeleted) Accept(v Visitor)          { v.VisitTodoDeleted(e) }
func (e TodoCommentAdded) Accept(v Visitor)     { v.VisitTodoCommentAdded(e) }
func (e ChecklistItemAdded) Accept(v Visitor)   { v.VisitChecklistItemAdded(e) }
func (e ChecklistItemUpdated) Accept(v Visitor) { v.VisitChecklistItemUpdated(e) }
func (e ChecklistItemDeleted) Accept(v Visitor) { v.VisitChecklistItemDeleted(e) }
func (e ColumnsUpdated) Accept(v Visitor)       { v.VisitColumnsUpdated(e) }
func (e Disconnected) Accept(v Visitor)         { v.VisitDisconnected(e) }
func (e TransportError) Accept(v Visitor)       { v.VisitTransportError(e) }

func (Connected) sealed()            {}
func (Subscribed) sealed()           {}
func (Unsubscribed) sealed()         {}
func (Pong) sealed()                 {}
func (TicketCreated) sealed()        {}
func (TicketUpdated) sealed()        {}
func (TicketDeleted) sealed()        {}
func (CommentAdded) sealed()         {}
func (TodoCreated) sealed()          {}
func (TodoUpdated) sealed()          {}
func (TodoDeleted) sealed()          {}
func (TodoCommentAdded) sealed()     {}
func (ChecklistItemAdded) sealed()   {}
func (ChecklistItemUpdated) sealed() {}
func (ChecklistItemDeleted) sealed() {}
func (ColumnsUpdated) sealed()       {}
func (Disconnected) sealed()         {}
func (TransportError) sealed()       {}

// TicketIDOf returns the ticket id an event refers to, if any.
func TicketIDOf(e Event) (model.ID, bool) {
	switch ev := e.(type) {
	case TicketCreated:
		return ev.Ticket.ID, true
	case TicketUpdated:
		return ev.Ticket.ID, true
	case CommentAdded:
		return ev.Ticket.ID, true
	case TicketDeleted:
		return ev.TicketID, true
	case Subscribed:
		return ev.TicketID, !ev.TicketID.IsZero()
	case Unsubscribed:
		return ev.TicketID, !ev.TicketID.IsZero()
	}
	return "", false
}

// TodoIDOf returns the todo id an event refers to, if any.
func TodoIDOf(e Event) (model.ID, bool) {
	switch ev := e.(type) {
	case TodoCreated:
		return ev.Todo.ID, true
	case TodoUpdated:
		return ev.Todo.ID, true
	case TodoCommentAdded:
		return ev.Todo.ID, true
	case ChecklistItemAdded:
		return ev.Todo.ID, true
	case ChecklistItemUpdated:
		return ev.Todo.ID, true
	case ChecklistItemDeleted:
		return ev.Todo.ID, true
	case TodoDeleted:
		return ev.TodoID, true
	}
	return "", false
}

// Funcs adapts plain functions to Visitor. Nil fields ignore their kind.
type Funcs struct {
	Connected            func(Connected)
	Subscribed           func(Subscribed)
	Unsubscribed         func(Unsubscribed)
	Pong                 func(Pong)
	TicketCreated        func(TicketCreated)
	TicketUpdated        func(TicketUpdated)
	TicketDeleted        func(TicketDeleted)
	CommentAdded         func(CommentAdded)
	TodoCreated          func(TodoCreated)
	TodoUpdated          func(TodoUpdated)
	TodoDeleted          func(TodoDeleted)
	TodoCommentAdded     func(TodoCommentAdded)
	ChecklistItemAdded   func(ChecklistItemAdded)
	ChecklistItemUpdated func(ChecklistItemUpdated)
	ChecklistItemDeleted func(ChecklistItemDeleted)
	ColumnsUpdated       func(ColumnsUpdated)
	Disconnected         func(Disconnected)
	TransportError       func(TransportError)
}

var _ Visitor = Funcs{}

func call[E any](fn func(E), e E) {
	if fn != nil {
		fn(e)
	}
}

func (f Funcs) VisitConnected(e Connected)                       { call(f.Connected, e) }
func (f Funcs) VisitSubscribed(e Subscribed)                     { call(f.Subscribed, e) }
func (f Funcs) VisitUnsubscribed(e Unsubscribed)                 { call(f.Unsubscribed, e) }
func (f Funcs) VisitPong(e Pong)                                 { call(f.Pong, e) }
func (f Funcs) VisitTicketCreated(e TicketCreated)               { call(f.TicketCreated, e) }
func (f Funcs) VisitTicketUpdated(e TicketUpdated)               { call(f.TicketUpdated, e) }
func (f Funcs) VisitTicketDeleted(e TicketDeleted)               { call(f.TicketDeleted, e) }
func (f Funcs) VisitCommentAdded(e CommentAdded)                 { call(f.CommentAdded, e) }
func (f Funcs) VisitTodoCreated(e TodoCreated)                   { call(f.TodoCreated, e) }
func (f Funcs) VisitTodoUpdated(e TodoUpdated)                   { call(f.TodoUpdated, e) }
func (f Funcs) VisitTodoDeleted(e TodoDeleted)                   { call(f.TodoDeleted, e) }
func (f Funcs) VisitTodoCommentAdded(e TodoCommentAdded)         { call(f.TodoCommentAdded, e) }
func (f Funcs) VisitChecklistItemAdded(e ChecklistItemAdded)     { call(f.ChecklistItemAdded, e) }
func (f Funcs) VisitChecklistItemUpdated(e ChecklistItemUpdated) { call(f.ChecklistItemUpdated, e) }
func (f Funcs) VisitChecklistItemDeleted(e ChecklistItemDeleted) { call(f.ChecklistItemDeleted, e) }
func (f Funcs) VisitColumnsUpdated(e ColumnsUpdated)             { call(f.ColumnsUpdated, e) }
func (f Funcs) VisitDisconnected(e Disconnected)                 { call(f.Disconnected, e) }
func (f Funcs) VisitTransportError(e TransportError)             { call(f.TransportError, e) }
