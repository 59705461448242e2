package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/teamvault/pkg/queue"
)

type capturePublisher struct {
	topic string
	msgs  []*message.Message
}

func (c *capturePublisher) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	c.topic = topic
	c.msgs = append(c.msgs, msgs...)

	return nil
}

// TestPublishActivity 主题由事件类型推导，消息 ID 为活动 ID.
func TestPublishActivity(t *testing.T) {
	pub := &capturePublisher{}

	err := queue.PublishActivity(context.Background(), pub, queue.ActivityPayload{
		ActivityID:  "01J0000000000000000000000A",
		WorkspaceID: "ws1",
		ActorID:     "u1",
		EventType:   "file.uploaded",
		Metadata:    map[string]any{"filename": "a.txt"},
	}, queue.WithProducer("teamvault"))
	if err != nil {
		t.Fatal(err)
	}

	if pub.topic != queue.TopicFileUploaded {
		t.Fatalf("unexpected topic %s", pub.topic)
	}

	msg := pub.msgs[0]
	if msg.UUID != "01J0000000000000000000000A" {
		t.Errorf("unexpected uuid %s", msg.UUID)
	}

	env, err := queue.ParseActivity(msg)
	if err != nil {
		t.Fatal(err)
	}

	if env.Header.Producer != "teamvault" || env.Header.Topic != queue.TopicFileUploaded {
		t.Errorf("unexpected header %+v", env.Header)
	}

	if env.Payload.Metadata["filename"] != "a.txt" {
		t.Errorf("unexpected metadata %v", env.Payload.Metadata)
	}
}

// TestEventForTopic 主题与事件类型互转.
func TestEventForTopic(t *testing.T) {
	if queue.EventForTopic(queue.TopicInviteAccepted) != "invite.accepted" {
		t.Error("unexpected event type")
	}

	if queue.TopicForEvent("member.removed") != queue.TopicMemberRemoved {
		t.Error("unexpected topic")
	}
}

// TestWatermillMetadata 事件头同步到消息元数据.
func TestWatermillMetadata(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	msg, err := queue.NewWatermillMessage(queue.TopicFilePurged, queue.FilePurgedPayload{FileID: "f1"},
		queue.WithTraceID("trace-1"), queue.WithOccurredAt(at))
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		queue.MetaTopic:      queue.TopicFilePurged,
		queue.MetaTraceID:    "trace-1",
		queue.MetaVersion:    queue.PayloadVersionV1,
		queue.MetaOccurredAt: at.Format(time.RFC3339Nano),
		queue.MetaProducer:   "",
	}
	for k, v := range want {
		if got := msg.Metadata.Get(k); got != v {
			t.Errorf("metadata %s = %q, want %q", k, got, v)
		}
	}

	if msg.UUID == "" {
		t.Error("missing message id")
	}
}

// TestDecodeVersion 缺省版本兼容，未知版本拒绝.
func TestDecodeVersion(t *testing.T) {
	if _, err := queue.Decode[queue.InvitesExpiredPayload]([]byte(`{"header":{"topic":"x"},"payload":{"count":2}}`)); err != nil {
		t.Fatalf("missing version: %v", err)
	}

	_, err := queue.Decode[queue.InvitesExpiredPayload]([]byte(`{"header":{"topic":"x","version":"v9"},"payload":{}}`))
	if !errors.Is(err, queue.ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}

	if _, err := queue.Decode[queue.InvitesExpiredPayload]([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

// TestPublishInvitesExpired 汇总事件携带清理数量.
func TestPublishInvitesExpired(t *testing.T) {
	pub := &capturePublisher{}

	if err := queue.PublishInvitesExpired(context.Background(), pub, 4); err != nil {
		t.Fatal(err)
	}

	if pub.topic != queue.TopicInviteExpired {
		t.Fatalf("topic = %s", pub.topic)
	}

	env, err := queue.ParseInvitesExpired(pub.msgs[0])
	if err != nil {
		t.Fatal(err)
	}

	if env.Payload.Count != 4 {
		t.Fatalf("count = %d", env.Payload.Count)
	}
}
