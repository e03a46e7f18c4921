package session

import (
	"github.com/simonjohansson/deskboard/internal/events"
	"github.com/simonjohansson/deskboard/internal/realtime"
)

var _ events.Visitor = (*Session)(nil)

// VisitConnected reloads the stores after a reconnect. The first connected
// event of a session needs nothing; Start already loaded.
func (s *Session) VisitConnected(events.Connected) {
	s.mu.Lock()
	run := s.resync && s.started && !s.closed
	s.resync = false
	if run {
		s.resyncWG.Add(1)
	}
	s.mu.Unlock()
	if run {
		go s.runResync()
	}
}

func (s *Session) VisitSubscribed(events.Subscribed) {}

func (s *Session) VisitUnsubscribed(events.Unsubscribed) {}

func (s *Session) VisitPong(events.Pong) {}

func (s *Session) VisitTicketCreated(ev events.TicketCreated) {
	s.tickets.ApplyRemoteUpsert(ev.Ticket)
}

func (s *Session) VisitTicketUpdated(ev events.TicketUpdated) {
	s.tickets.ApplyRemoteUpsert(ev.Ticket)
}

func (s *Session) VisitTicketDeleted(ev events.TicketDeleted) {
	s.tickets.ApplyRemoteDelete(ev.TicketID)
}

func (s *Session) VisitCommentAdded(ev events.CommentAdded) {
	s.tickets.ApplyRemoteUpsert(ev.Ticket)
}

func (s *Session) VisitTodoCreated(ev events.TodoCreated) {
	s.todos.ApplyRemoteUpsert(ev.Todo)
}

func (s *Session) VisitTodoUpdated(ev events.TodoUpdated) {
	s.todos.ApplyRemoteUpsert(ev.Todo)
}

func (s *Session) VisitTodoDeleted(ev events.TodoDeleted) {
	s.todos.ApplyRemoteDelete(ev.TodoID)
}

func (s *Session) VisitTodoCommentAdded(ev events.TodoCommentAdded) {
	s.todos.ApplyRemoteUpsert(ev.Todo)
}

func (s *Session) VisitChecklistItemAdded(ev events.ChecklistItemAdded) {
	s.todos.ApplyRemoteUpsert(ev.Todo)
}

func (s *Session) VisitChecklistItemUpdated(ev events.ChecklistItemUpdated) {
	s.todos.ApplyRemoteUpsert(ev.Todo)
}

func (s *Session) VisitChecklistItemDeleted(ev events.ChecklistItemDeleted) {
	s.todos.ApplyRemoteUpsert(ev.Todo)
}

func (s *Session) VisitColumnsUpdated(ev events.ColumnsUpdated) {
	s.board.ApplyRemote(ev.Columns)
}

// VisitDisconnected ends the session on a policy violation close. Any
// other close marks the stores stale until the next connected event.
func (s *Session) VisitDisconnected(ev events.Disconnected) {
	if ev.Code == realtime.ClosePolicyViolation {
		s.forceLogout("rejected by server: " + ev.Reason)
		return
	}
	s.mu.Lock()
	if s.started {
		s.resync = true
	}
	s.mu.Unlock()
}

func (s *Session) VisitTransportError(ev events.TransportError) {
	s.logger.Debug("websocket error", "error", ev.Err)
}
