package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/simonjohansson/deskboard/internal/model"
	"github.com/stretchr/testify/require"
)

func TestApplyRemoteUpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewTicketStore(&stubTicketAPI{}, TicketStoreOptions{})
	ticket := model.Ticket{ID: "T1", Title: "Printer", Status: model.TicketStatusOpen}

	s.ApplyRemoteUpsert(ticket)
	s.ApplyRemoteUpsert(ticket)

	require.Equal(t, 1, s.Len())
	got, ok := s.Get("T1")
	require.True(t, ok)
	require.Equal(t, ticket, got)
}

func TestApplyRemoteUpsertReplacesWholeEntity(t *testing.T) {
	t.Parallel()

	s := NewTicketStore(&stubTicketAPI{}, TicketStoreOptions{})
	s.ApplyRemoteUpsert(model.Ticket{ID: "T1", Status: "open", Comments: []model.Comment{}})
	s.ApplyRemoteUpsert(model.Ticket{ID: "T1", Status: "open", Comments: []model.Comment{{ID: "C1", Text: "hi"}}})

	require.Equal(t, 1, s.Len())
	require.Len(t, s.Comments("T1"), 1)

	assignee := model.ID("u9")
	s.ApplyRemoteUpsert(model.Ticket{ID: "T1", Title: "new", Status: "closed", AssignedTo: &assignee})
	got, _ := s.Get("T1")
	require.Equal(t, "closed", got.Status)
	require.Empty(t, got.Comments)
}

func TestApplyRemoteDeleteOfUnknownIDIsNoop(t *testing.T) {
	t.Parallel()

	s := NewTicketStore(&stubTicketAPI{}, TicketStoreOptions{})
	changes := 0
	s.Subscribe(func(Change) { changes++ })

	s.ApplyRemoteDelete("never-seen")
	require.Equal(t, 0, s.Len())
	require.Equal(t, 0, changes)

	s.ApplyRemoteUpsert(model.Ticket{ID: "A"})
	s.ApplyRemoteUpsert(model.Ticket{ID: "B"})
	s.ApplyRemoteDelete("A")
	require.Equal(t, []model.ID{"B"}, ids(s.All()))
	_, ok := s.Get("B")
	require.True(t, ok)
}

func TestCreateThenBroadcastLeavesOneTicket(t *testing.T) {
	t.Parallel()

	created := model.Ticket{ID: "41", Title: "VPN", CreatedBy: "u1"}
	api := &stubTicketAPI{createFn: func(_ context.Context, draft model.TicketDraft) (model.Ticket, error) {
		require.Equal(t, "VPN", draft.Title)
		return created, nil
	}}
	s := NewTicketStore(api, TicketStoreOptions{})

	got, err := s.Create(context.Background(), model.TicketDraft{Title: "VPN"})
	require.NoError(t, err)
	require.Equal(t, created, got)

	s.ApplyRemoteUpsert(created)
	require.Equal(t, 1, s.Len())
}

func TestFailedMutationLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()

	boom := errors.New("forbidden")
	api := &stubTicketAPI{
		updateFn:  func(context.Context, model.ID, model.TicketPatch) (model.Ticket, error) { return model.Ticket{}, boom },
		deleteFn:  func(context.Context, model.ID) error { return boom },
		commentFn: func(context.Context, model.ID, string) (model.Ticket, error) { return model.Ticket{}, boom },
	}
	s := NewTicketStore(api, TicketStoreOptions{})
	original := model.Ticket{ID: "1", Status: "open"}
	s.ApplyRemoteUpsert(original)

	_, err := s.SetStatus(context.Background(), "1", "closed")
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, s.Delete(context.Background(), "1"), boom)
	_, err = s.AddComment(context.Background(), "1", "hi")
	require.ErrorIs(t, err, boom)

	got, ok := s.Get("1")
	require.True(t, ok)
	require.Equal(t, original, got)
}

func TestMutationsTranslateToPatches(t *testing.T) {
	t.Parallel()

	var patches []model.TicketPatch
	api := &stubTicketAPI{updateFn: func(_ context.Context, id model.ID, patch model.TicketPatch) (model.Ticket, error) {
		patches = append(patches, patch)
		return model.Ticket{ID: id}, nil
	}}
	s := NewTicketStore(api, TicketStoreOptions{})

	_, err := s.Assign(context.Background(), "1", "u2", "Ivan")
	require.NoError(t, err)
	_, err = s.SetEstimatedTime(context.Background(), "1", "2h")
	require.NoError(t, err)

	require.Len(t, patches, 2)
	require.Equal(t, model.ID("u2"), *patches[0].AssignedTo)
	require.Equal(t, "Ivan", *patches[0].AssignedToName)
	require.Nil(t, patches[0].Status)
	require.Equal(t, "2h", *patches[1].EstimatedTime)
}

func TestDeleteRemovesAfterConfirmation(t *testing.T) {
	t.Parallel()

	api := &stubTicketAPI{deleteFn: func(context.Context, model.ID) error { return nil }}
	s := NewTicketStore(api, TicketStoreOptions{})
	s.ApplyRemoteUpsert(model.Ticket{ID: "1"})

	require.NoError(t, s.Delete(context.Background(), "1"))
	require.Equal(t, 0, s.Len())
	s.ApplyRemoteDelete("1")
	require.Equal(t, 0, s.Len())
}

func TestLoadAllReplacesAndIsSingleFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	api := &stubTicketAPI{listFn: func(context.Context) ([]model.Ticket, error) {
		calls.Add(1)
		close(started)
		<-release
		return []model.Ticket{{ID: "1"}, {ID: "2"}}, nil
	}}
	s := NewTicketStore(api, TicketStoreOptions{})
	s.ApplyRemoteUpsert(model.Ticket{ID: "stale"})

	done := make(chan error, 1)
	go func() { done <- s.LoadAll(context.Background()) }()
	<-started
	require.True(t, s.Loading())

	require.NoError(t, s.LoadAll(context.Background()))
	close(release)
	require.NoError(t, <-done)

	require.Equal(t, int32(1), calls.Load())
	require.False(t, s.Loading())
	require.Equal(t, []model.ID{"1", "2"}, ids(s.All()))
}

func TestLoadAllFailureClearsCollection(t *testing.T) {
	t.Parallel()

	boom := errors.New("offline")
	api := &stubTicketAPI{listFn: func(context.Context) ([]model.Ticket, error) { return nil, boom }}
	s := NewTicketStore(api, TicketStoreOptions{})
	s.ApplyRemoteUpsert(model.Ticket{ID: "1"})

	var kinds []ChangeKind
	s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	require.ErrorIs(t, s.LoadAll(context.Background()), boom)
	require.Equal(t, 0, s.Len())
	require.Equal(t, []ChangeKind{ChangeLoading, ChangeClear, ChangeLoading}, kinds)
}

func TestSelectForRoleIsPure(t *testing.T) {
	t.Parallel()

	s := NewTicketStore(&stubTicketAPI{}, TicketStoreOptions{})
	require.Empty(t, s.SelectForRole(model.RoleAdmin, "u1"))
	require.Empty(t, s.SelectForRole(model.RoleUser, "u1"))

	s.ApplyRemoteUpsert(model.Ticket{ID: "1", CreatedBy: "u1"})
	s.ApplyRemoteUpsert(model.Ticket{ID: "2", CreatedBy: "u2"})
	s.ApplyRemoteUpsert(model.Ticket{ID: "3", CreatedBy: "u1"})

	require.Equal(t, []model.ID{"1", "3"}, ids(s.SelectForRole(model.RoleUser, "u1")))
	require.Equal(t, []model.ID{"1", "2", "3"}, ids(s.SelectForRole(model.RoleAdmin, "anyone")))
	require.Equal(t, []model.ID{"1", "2", "3"}, ids(s.SelectForRole(model.RoleIT, "")))
	require.Empty(t, s.SelectForRole(model.RoleUser, "u3"))
	require.Equal(t, 3, s.Len())
}

func TestTriageVisibility(t *testing.T) {
	t.Parallel()

	s := NewTicketStore(&stubTicketAPI{}, TicketStoreOptions{Visibility: VisibilityTriage})
	me := model.ID("it1")
	s.ApplyRemoteUpsert(model.Ticket{ID: "1", Status: "open", CreatedBy: "u1"})
	s.ApplyRemoteUpsert(model.Ticket{ID: "2", Status: "closed", CreatedBy: "u1", AssignedTo: &me})
	s.ApplyRemoteUpsert(model.Ticket{ID: "3", Status: "in_progress", CreatedBy: "u2"})

	require.Equal(t, []model.ID{"1", "2"}, ids(s.SelectForRole(model.RoleIT, me)))
	require.Equal(t, []model.ID{"1", "2", "3"}, ids(s.SelectForRole(model.RoleAdmin, me)))
	require.Equal(t, []model.ID{"3"}, ids(s.SelectForRole(model.RoleUser, "u2")))
}

func TestCanComment(t *testing.T) {
	t.Parallel()

	ticket := model.Ticket{ID: "1", CreatedBy: "u1"}
	require.True(t, CanComment(ticket, model.RoleUser, "u1"))
	require.False(t, CanComment(ticket, model.RoleUser, "u2"))
	require.True(t, CanComment(ticket, model.RoleIT, "u2"))
}

func ids[T Entity](items []T) []model.ID {
	out := make([]model.ID, 0, len(items))
	for _, item := range items {
		out = append(out, item.EntityID())
	}
	return out
}
