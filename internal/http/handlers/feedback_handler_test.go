package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cfci-lab/intake-backend/internal/services"
)

func TestLeaveFeedback_Success(t *testing.T) {
	var got struct {
		uid   string
		msgID uint
		value int
	}
	fb := &fakeFbSvc{
		leave: func(_ context.Context, uid string, messageID uint, value int) error {
			got.uid, got.msgID, got.value = uid, messageID, value
			return nil
		},
	}
	r := newTestRouter(New(nil, nil, nil, fb))

	w := doJSON(t, r, http.MethodPost, "/messages/7/feedback", `{"value":1}`, asUser("u1"))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got.uid != "u1" || got.msgID != 7 || got.value != 1 {
		t.Fatalf("service args wrong: %+v", got)
	}
}

func TestLeaveFeedback_RequiresIdentity(t *testing.T) {
	fb := &fakeFbSvc{
		leave: func(context.Context, string, uint, int) error {
			t.Error("service must not be called without identity")
			return nil
		},
	}
	r := newTestRouter(New(nil, nil, nil, fb))

	w := doJSON(t, r, http.MethodPost, "/messages/7/feedback", `{"value":1}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestLeaveFeedback_RejectsInvalidPayload(t *testing.T) {
	r := newTestRouter(New(nil, nil, nil, &fakeFbSvc{}))
	for _, body := range []string{`{}`, `{"value":0}`, `{"value":3}`, `bad`} {
		w := doJSON(t, r, http.MethodPost, "/messages/7/feedback", body, asUser("u1"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestLeaveFeedback_RejectsBadMessageID(t *testing.T) {
	r := newTestRouter(New(nil, nil, nil, &fakeFbSvc{}))
	for _, id := range []string{"abc", "0"} {
		w := doJSON(t, r, http.MethodPost, "/messages/"+id+"/feedback", `{"value":1}`, asUser("u1"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("id %q: status = %d, want 400", id, w.Code)
		}
	}
}

func TestLeaveFeedback_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing message", services.ErrMessageNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"invalid value", services.ErrInvalidFeedback, http.StatusBadRequest, ErrCodeBadRequest},
		{"forbidden", services.ErrForbiddenFeedback, http.StatusForbidden, ErrCodeForbidden},
		{"duplicate", services.ErrDuplicateFeedback, http.StatusConflict, ErrCodeConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb := &fakeFbSvc{
				leave: func(context.Context, string, uint, int) error { return tc.err },
			}
			r := newTestRouter(New(nil, nil, nil, fb))

			w := doJSON(t, r, http.MethodPost, "/messages/7/feedback", `{"value":-1}`, asUser("u1"))
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if e := decodeErr(t, w); e.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", e.Code, tc.wantCode)
			}
		})
	}
}
