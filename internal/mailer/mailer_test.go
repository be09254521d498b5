package mailer

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

type fakeClient struct {
	mu   sync.Mutex
	sent []Envelope
	err  error
}

func (f *fakeClient) Send(ctx context.Context, envelope Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, envelope)
	return nil
}

type stateChange struct {
	id     int64
	state  string
	errMsg string
}

type fakeStates struct {
	changes []stateChange
	err     error
}

func (f *fakeStates) SetMailState(ctx context.Context, id int64, state, errMsg string) error {
	if f.err != nil {
		return f.err
	}
	f.changes = append(f.changes, stateChange{id, state, errMsg})
	return nil
}

func testMail(id int64) *models.ElectronicMail {
	return &models.ElectronicMail{
		ID:         id,
		From:       "shop@example.com",
		Recipients: []string{"jane@example.com"},
		Raw:        []byte("Subject: hi\r\n\r\nbody"),
		State:      models.MailStateDraft,
	}
}

func TestActionSyncMarksSent(t *testing.T) {
	client := &fakeClient{}
	states := &fakeStates{}
	action := NewAction(client, nil, "", zap.NewNop().Sugar())

	mail := testMail(3)
	require.NoError(t, action.Send(context.Background(), states, mail))

	assert.Equal(t, SyncDelivery, action.Mode())
	assert.Len(t, client.sent, 1)
	assert.Equal(t, models.MailStateSent, mail.State)
	assert.Equal(t, []stateChange{{3, models.MailStateSent, ""}}, states.changes)
}

func TestActionSyncMarksFailedAndReturnsDeliveryError(t *testing.T) {
	client := &fakeClient{err: errors.New("550 mailbox unavailable")}
	states := &fakeStates{}
	action := NewAction(client, nil, SyncDelivery, zap.NewNop().Sugar())

	mail := testMail(4)
	err := action.Send(context.Background(), states, mail)

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, int64(4), deliveryErr.MailID)
	assert.Equal(t, models.MailStateFailed, mail.State)
	assert.Equal(t, []stateChange{{4, models.MailStateFailed, "550 mailbox unavailable"}}, states.changes)
}

func TestActionAsyncEnqueuesAndReportsResult(t *testing.T) {
	client := &fakeClient{}
	queue := NewInMemoryMailer(client, 2, 10, zap.NewNop().Sugar())

	var mu sync.Mutex
	results := map[int64]error{}
	done := make(chan struct{}, 2)
	queue.OnResult(func(job MailJob, err error) {
		mu.Lock()
		results[job.MailID] = err
		mu.Unlock()
		done <- struct{}{}
	})
	queue.Start()

	states := &fakeStates{}
	action := NewAction(client, queue, AsyncInMemory, zap.NewNop().Sugar())

	first, second := testMail(1), testMail(2)
	require.NoError(t, action.Send(context.Background(), states, first, second))
	assert.Equal(t, models.MailStateOutbox, first.State)
	assert.Equal(t, models.MailStateOutbox, second.State)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("queued mail was not delivered")
		}
	}
	queue.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, results, 2)
	assert.NoError(t, results[1])
	assert.NoError(t, results[2])
	assert.Len(t, client.sent, 2)
}

func TestQueueRejectsWhenStopped(t *testing.T) {
	queue := NewInMemoryMailer(&fakeClient{}, 1, 1, zap.NewNop().Sugar())
	assert.ErrorIs(t, queue.Enqueue(MailJob{MailID: 1}), ErrQueueNotRunning)

	queue.Start()
	queue.Stop()
	assert.ErrorIs(t, queue.Enqueue(MailJob{MailID: 1}), ErrQueueNotRunning)
}

type mockSESClient struct {
	lastInput *sesv2.SendEmailInput
	err       error
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.lastInput = params
	if m.err != nil {
		return nil, m.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESMailerSendsRawMessage(t *testing.T) {
	mock := &mockSESClient{}
	m := NewSESMailerWithClient(mock, zap.NewNop().Sugar())

	envelope := Envelope{
		From:       "shop@example.com",
		Recipients: []string{"jane@example.com", "audit@example.com"},
		Raw:        []byte(blindCopyMessage),
	}
	require.NoError(t, m.Send(context.Background(), envelope))

	require.NotNil(t, mock.lastInput)
	assert.Equal(t, "shop@example.com", aws.ToString(mock.lastInput.FromEmailAddress))
	assert.Equal(t, envelope.Recipients, mock.lastInput.Destination.ToAddresses)

	data := string(mock.lastInput.Content.Raw.Data)
	assert.NotContains(t, data, "Bcc:")
	assert.NotContains(t, data, "audit@example.com")
	assert.Contains(t, data, "To: jane@example.com\r\n")
	assert.True(t, strings.HasSuffix(data, "\r\n\r\nsecret body\r\n"))
}

const blindCopyMessage = "From: shop@example.com\r\n" +
	"To: jane@example.com\r\n" +
	"Bcc: audit@example.com\r\n" +
	"Subject: Invoice\r\n" +
	"\r\n" +
	"secret body\r\n"

func TestEnvelopeMessageDropsBccHeader(t *testing.T) {
	envelope := Envelope{Raw: []byte(blindCopyMessage)}

	msg, err := envelope.Message()
	require.NoError(t, err)

	assert.Equal(t, "From: shop@example.com\r\n"+
		"To: jane@example.com\r\n"+
		"Subject: Invoice\r\n"+
		"\r\n"+
		"secret body\r\n", string(msg))

	// the stored message keeps its Bcc header
	assert.Contains(t, string(envelope.Raw), "Bcc: audit@example.com")
}

func TestEnvelopeMessageWithoutBccIsUnchanged(t *testing.T) {
	raw := []byte("Subject: hi\r\n\r\nbody")

	msg, err := Envelope{Raw: raw}.Message()
	require.NoError(t, err)
	assert.Equal(t, raw, msg)
}

func TestEnvelopeMessageRejectsMalformedHeader(t *testing.T) {
	_, err := Envelope{Raw: []byte("not a header\r\n\r\nbody")}.Message()
	assert.Error(t, err)
}

// smtpRecorder is a minimal SMTP server that keeps what it received.
type smtpRecorder struct {
	listener net.Listener
	done     chan struct{}
	rcpt     []string
	data     string
}

func newSMTPRecorder(t *testing.T) *smtpRecorder {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &smtpRecorder{listener: l, done: make(chan struct{})}
	t.Cleanup(func() { l.Close() })
	go r.serve()
	return r
}

func (r *smtpRecorder) serve() {
	defer close(r.done)
	conn, err := r.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 localhost")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			_ = tp.PrintfLine("250 ok")
		case strings.HasPrefix(cmd, "RCPT TO"):
			r.rcpt = append(r.rcpt, strings.Trim(line[len("RCPT TO:"):], "<>"))
			_ = tp.PrintfLine("250 ok")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			r.data = string(body)
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func TestSMTPMailerHidesBccRecipients(t *testing.T) {
	server := newSMTPRecorder(t)
	host, port, err := net.SplitHostPort(server.listener.Addr().String())
	require.NoError(t, err)

	m := NewSendSMTP(host, port, "", "", "none", zap.NewNop().Sugar())
	envelope := Envelope{
		From:       "shop@example.com",
		Recipients: []string{"jane@example.com", "audit@example.com"},
		Raw:        []byte(blindCopyMessage),
	}
	require.NoError(t, m.Send(context.Background(), envelope))

	select {
	case <-server.done:
	case <-time.After(2 * time.Second):
		t.Fatal("smtp session did not finish")
	}

	assert.Equal(t, []string{"jane@example.com", "audit@example.com"}, server.rcpt)
	assert.NotContains(t, server.data, "Bcc:")
	assert.Contains(t, server.data, "To: jane@example.com")
	assert.Contains(t, server.data, "secret body")
}

func TestSESMailerWrapsErrors(t *testing.T) {
	boom := errors.New("throttled")
	m := NewSESMailerWithClient(&mockSESClient{err: boom}, zap.NewNop().Sugar())

	err := m.Send(context.Background(), Envelope{From: "a@example.com", Recipients: []string{"b@example.com"}})
	assert.ErrorIs(t, err, boom)
}

func TestTransportsRejectEmptyRecipients(t *testing.T) {
	logger := zap.NewNop().Sugar()
	clients := []Client{
		NewSandboxMailer(logger),
		NewSESMailerWithClient(&mockSESClient{}, logger),
		NewSendSMTP("localhost", "25", "", "", "", logger),
	}
	for _, c := range clients {
		assert.ErrorIs(t, c.Send(context.Background(), Envelope{From: "a@example.com"}), ErrNoRecipients)
	}
}
