package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel/channeltest"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	delivered int
	err       error
	userID    string
	payload   interface{}
}

func (f *fakeNotifier) Notify(userID string, payload interface{}) (int, error) {
	f.userID = userID
	f.payload = payload
	return f.delivered, f.err
}

// Test Send builds and delivers a notification
func TestSender_Send(t *testing.T) {
	n := &fakeNotifier{delivered: 2}
	s := NewSender(n)

	resp, err := s.Send(context.Background(), notification.SendRequest{
		RecipientID: "emp-1",
		Title:       "Reminder",
		Message:     "Please check in",
		SenderID:    "admin-1",
	})

	require.NoError(t, err)
	assert.Equal(t, 2, resp.Delivered)
	assert.Equal(t, "emp-1", n.userID)
	assert.NotEmpty(t, resp.Notification.ID)
	assert.Equal(t, notification.TypeGeneral, resp.Notification.Type)
	assert.Equal(t, resp.Notification, n.payload)
}

// Test Send reports an offline recipient
func TestSender_SendOffline(t *testing.T) {
	s := NewSender(&fakeNotifier{})

	_, err := s.Send(context.Background(), notification.SendRequest{RecipientID: "emp-1", Title: "Hi"})

	assert.ErrorIs(t, err, notification.ErrRecipientOffline)
}

// Test Send validates the request
func TestSender_SendValidation(t *testing.T) {
	n := &fakeNotifier{delivered: 1}
	s := NewSender(n)

	_, err := s.Send(context.Background(), notification.SendRequest{Type: "bogus"})

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 3)
	assert.Empty(t, n.userID)
}

// Test the inbox appends every notification payload
func TestInbox_AppendsPayloads(t *testing.T) {
	pipe := channeltest.NewPipe()
	client := channel.NewClient(pipe, channel.Config{ReconnectDelay: time.Millisecond}, nil)
	defer client.Close()
	require.NoError(t, client.Connect(context.Background()))

	inbox := NewInbox(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer inbox.Close()

	require.NoError(t, pipe.Push(location.EventNotification, notification.Notification{ID: "n1", Title: "First"}))
	require.NoError(t, pipe.Push(location.EventNotification, "plain text"))

	require.Eventually(t, func() bool { return inbox.Len() == 2 }, time.Second, time.Millisecond)

	items := inbox.Items()
	assert.Equal(t, "First", items[0].Notification.Title)
	assert.JSONEq(t, `"plain text"`, string(items[1].Raw))

	inbox.Close()
	require.NoError(t, pipe.Push(location.EventNotification, json.RawMessage(`{}`)))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, inbox.Len())
}

// Test warnings keep only the most recent entries
func TestWarnings_KeepsRecent(t *testing.T) {
	w := NewWarnings(slog.New(slog.NewTextHandler(io.Discard, nil)), 2)

	w.Warn("one")
	w.Warn("two")
	w.Warn("three")

	recent := w.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Message)
	assert.Equal(t, "three", recent[1].Message)
}
