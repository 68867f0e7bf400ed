package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

type published struct {
	topic   string
	payload []byte
}

func newTestForwarder(fail error) (*MQTTForwarder, chan published) {
	f := NewMQTTForwarder(MQTTConfig{TopicPrefix: "site1"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	out := make(chan published, 8)
	f.publish = func(topic string, payload []byte) error {
		if fail != nil {
			return fail
		}
		out <- published{topic: topic, payload: payload}
		return nil
	}
	return f, out
}

func TestTopic(t *testing.T) {
	d := types.AccessDecision{Channel: types.ChannelFace}
	a := types.Alert{Channel: types.ChannelFace, Kind: types.AlertUnknownFace}

	if got := Topic("p", types.Event{Kind: types.EventDecision, Decision: &d}); got != "p/decisions/face" {
		t.Errorf("expected p/decisions/face, got %s", got)
	}
	if got := Topic("p", types.Event{Kind: types.EventAlert, Alert: &a}); got != "p/alerts/face" {
		t.Errorf("expected p/alerts/face, got %s", got)
	}
}

func TestForwarder_RunPublishesJSON(t *testing.T) {
	f, out := newTestForwarder(nil)
	hub := NewHub()
	sub := hub.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx, sub)
		close(done)
	}()

	d := types.AccessDecision{Channel: types.ChannelPlate, DetectedValue: "MH12AB1234", Status: types.StatusGranted}
	hub.Publish(types.Event{Kind: types.EventDecision, Decision: &d})

	select {
	case p := <-out:
		if p.topic != "site1/decisions/license_plate" {
			t.Errorf("unexpected topic %s", p.topic)
		}
		var ev types.Event
		if err := json.Unmarshal(p.payload, &ev); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if ev.Decision == nil || ev.Decision.DetectedValue != "MH12AB1234" {
			t.Errorf("unexpected payload: %s", p.payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
	}

	cancel()
	<-done
	if got := f.Stats().Published["site1/decisions/license_plate"]; got != 1 {
		t.Errorf("expected 1 published, got %d", got)
	}
}

func TestForwarder_CountsErrors(t *testing.T) {
	f, _ := newTestForwarder(errors.New("broker down"))
	d := types.AccessDecision{Channel: types.ChannelScan}
	if err := f.Forward(types.Event{Kind: types.EventDecision, Decision: &d}); err == nil {
		t.Fatal("expected error")
	}
	if f.Stats().Errors != 1 {
		t.Errorf("expected 1 error, got %d", f.Stats().Errors)
	}
}

func TestForwarder_NotConnected(t *testing.T) {
	f := NewMQTTForwarder(MQTTConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d := types.AccessDecision{Channel: types.ChannelScan}
	if err := f.Forward(types.Event{Kind: types.EventDecision, Decision: &d}); !errors.Is(err, errNotConnected) {
		t.Errorf("expected errNotConnected, got %v", err)
	}
}

func TestForwarder_RunStopsWhenSubscriptionCloses(t *testing.T) {
	f, _ := newTestForwarder(nil)
	hub := NewHub()
	sub := hub.Subscribe(1)
	done := make(chan struct{})
	go func() {
		f.Run(context.Background(), sub)
		close(done)
	}()
	hub.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after hub close")
	}
}
