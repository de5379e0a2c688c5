package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/shared"
)

const testDate = "Mon, 02 Jan 2006 15:04:05 GMT"

func newTestClient(t *testing.T, handler http.HandlerFunc) *NicoliveClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewNicoliveClient(ClientOpts{
		BaseURL:     srv.URL,
		NicoadURL:   srv.URL + "/nicoad",
		WatchURL:    "https://live.example/watch",
		HTTPClient:  srv.Client(),
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test_token"}),
		Logger:      shared.NewLogger(io.Discard),
	})
}

func writeEnvelope(w http.ResponseWriter, status int, errorCode string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Date", testDate)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"meta": map[string]any{"status": status, "errorCode": errorCode},
		"data": data,
	})
}

func TestNicoliveClient(t *testing.T) {
	wantDate, _ := http.ParseTime(testDate)

	t.Run("FetchProgramSchedules", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/unama/tool/v2/program-schedules" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test_token" {
				t.Errorf("expected bearer token, got %q", got)
			}
			if r.Header.Get("X-Request-Id") == "" {
				t.Error("expected request id header")
			}
			writeEnvelope(w, http.StatusOK, "", map[string]any{
				"programSchedules": []map[string]any{
					{"nicoliveProgramId": "lv1", "socialGroupId": "co1", "status": "reserved", "onAirBeginAt": 100, "onAirEndAt": 200},
					{"nicoliveProgramId": "lv2", "socialGroupId": "ch2", "status": "onAir", "onAirBeginAt": 50, "onAirEndAt": 150},
				},
			})
		})

		res, err := client.FetchProgramSchedules(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(res.Value) != 2 {
			t.Fatalf("expected 2 schedules, got %d", len(res.Value))
		}
		if res.Value[0].ProgramID != "lv1" || res.Value[0].Status != models.StatusReserved || res.Value[0].OnAirBeginAt != 100 {
			t.Errorf("unexpected first schedule: %+v", res.Value[0])
		}
		if !res.ServerDate.Equal(wantDate) {
			t.Errorf("expected server date %v, got %v", wantDate, res.ServerDate)
		}
	})

	t.Run("FetchProgram", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/watch/lv1/programinfo" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			writeEnvelope(w, http.StatusOK, "", map[string]any{
				"title":            "title",
				"description":      "desc",
				"status":           "test",
				"showTime":         map[string]any{"beginAt": 1000, "endAt": 2800},
				"vposBaseAt":       900,
				"isMemberOnly":     true,
				"moderatorViewUri": "https://mod.example/lv1",
			})
		})

		res, err := client.FetchProgram(context.Background(), "lv1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := models.ProgramDetail{
			ProgramID:        "lv1",
			Title:            "title",
			Description:      "desc",
			Status:           models.StatusTest,
			BeginAt:          1000,
			EndAt:            2800,
			VposBaseAt:       900,
			IsMemberOnly:     true,
			ViewURI:          "https://live.example/watch/lv1",
			ModeratorViewURI: "https://mod.example/lv1",
		}
		if res.Value != want {
			t.Errorf("expected %+v, got %+v", want, res.Value)
		}
	})

	t.Run("FetchProgramPassword", func(t *testing.T) {
		tc := []struct {
			name      string
			status    int
			errorCode string
			data      any
			want      string
			wantErr   error
		}{
			{name: "protected", status: http.StatusOK, data: map[string]any{"password": "secret"}, want: "secret"},
			{name: "not protected", status: http.StatusNotFound, errorCode: "NOT_PASSWORD_PROGRAM", wantErr: ErrNotPasswordProtected},
			{name: "other not found", status: http.StatusNotFound, errorCode: "NOT_FOUND", wantErr: shared.ErrAPIRequest},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
					if r.URL.Path != "/unama/api/v2/programs/lv1/password" {
						t.Errorf("unexpected path: %s", r.URL.Path)
					}
					writeEnvelope(w, tt.status, tt.errorCode, tt.data)
				})

				res, err := client.FetchProgramPassword(context.Background(), "lv1")
				if tt.wantErr != nil {
					if !errors.Is(err, tt.wantErr) {
						t.Fatalf("expected %v, got %v", tt.wantErr, err)
					}
					if tt.wantErr == ErrNotPasswordProtected && errors.Is(err, shared.ErrAPIRequest) {
						t.Error("sentinel should not be reported as an API failure")
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if res.Value != tt.want {
					t.Errorf("expected %q, got %q", tt.want, res.Value)
				}
			})
		}
	})

	t.Run("Segment operations", func(t *testing.T) {
		tc := []struct {
			name     string
			call     func(*NicoliveClient) (Result[models.Segment], error)
			path     string
			wantBody map[string]any
			reply    map[string]any
			want     models.Segment
		}{
			{
				name: "StartProgram",
				call: func(c *NicoliveClient) (Result[models.Segment], error) {
					return c.StartProgram(context.Background(), "lv1")
				},
				path:     "/unama/api/v2/programs/lv1/segment",
				wantBody: map[string]any{"state": "on_air"},
				reply:    map[string]any{"start_time": 1000, "end_time": 2800},
				want:     models.Segment{StartTime: 1000, EndTime: 2800},
			},
			{
				name: "EndProgram",
				call: func(c *NicoliveClient) (Result[models.Segment], error) {
					return c.EndProgram(context.Background(), "lv1")
				},
				path:     "/unama/api/v2/programs/lv1/segment",
				wantBody: map[string]any{"state": "end"},
				reply:    map[string]any{"end_time": 1500},
				want:     models.Segment{EndTime: 1500},
			},
			{
				name: "ExtendProgram",
				call: func(c *NicoliveClient) (Result[models.Segment], error) {
					return c.ExtendProgram(context.Background(), "lv1")
				},
				path:     "/unama/api/v2/programs/lv1/extension",
				wantBody: map[string]any{"minutes": float64(30)},
				reply:    map[string]any{"end_time": 4600},
				want:     models.Segment{EndTime: 4600},
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
					if r.Method != http.MethodPut {
						t.Errorf("expected PUT, got %s", r.Method)
					}
					if r.URL.Path != tt.path {
						t.Errorf("unexpected path: %s", r.URL.Path)
					}
					var body map[string]any
					if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
						t.Errorf("failed to decode body: %v", err)
					}
					for k, v := range tt.wantBody {
						if body[k] != v {
							t.Errorf("expected body %s=%v, got %v", k, v, body[k])
						}
					}
					writeEnvelope(w, http.StatusOK, "", tt.reply)
				})

				res, err := tt.call(client)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if res.Value != tt.want {
					t.Errorf("expected %+v, got %+v", tt.want, res.Value)
				}
				if !res.HasServerDate() {
					t.Error("expected server date")
				}
			})
		}
	})

	t.Run("Statistics", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/unama/api/v2/programs/lv1/statistics":
				writeEnvelope(w, http.StatusOK, "", map[string]any{"watchCount": 12, "commentCount": 34})
			case "/nicoad/v1/live/statusarea/lv1":
				writeEnvelope(w, http.StatusOK, "", map[string]any{"totalAdPoint": 56, "totalGiftPoint": 78})
			default:
				t.Errorf("unexpected path: %s", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		})

		stats, err := client.FetchStatistics(context.Background(), "lv1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if stats.Value.WatchCount != 12 || stats.Value.CommentCount != 34 {
			t.Errorf("unexpected statistics: %+v", stats.Value)
		}

		ad, err := client.FetchNicoadStatistics(context.Background(), "lv1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ad.Value.TotalAdPoint != 56 || ad.Value.TotalGiftPoint != 78 {
			t.Errorf("unexpected nicoad statistics: %+v", ad.Value)
		}
	})

	t.Run("Error Responses", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusConflict, "ALREADY_ENDED", nil)
		})

		res, err := client.EndProgram(context.Background(), "lv1")
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}

		status, ok := StatusCode(err)
		if !ok || status != http.StatusConflict {
			t.Errorf("expected status 409, got %d (%v)", status, ok)
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode != "ALREADY_ENDED" {
			t.Errorf("expected error code ALREADY_ENDED, got %s", apiErr.ErrorCode)
		}
		if !res.HasServerDate() {
			t.Error("expected server date to be kept on failure")
		}
	})

	t.Run("Unavailable Responses", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusServiceUnavailable, "MAINTENANCE", nil)
		})

		_, err := client.StartProgram(context.Background(), "lv1")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		client := NewNicoliveClient(ClientOpts{BaseURL: url, HTTPClient: &http.Client{}, Logger: shared.NewLogger(io.Discard)})
		_, err := client.FetchStatistics(context.Background(), "lv1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if _, ok := StatusCode(err); ok {
			t.Error("transport failure should carry no status code")
		}
	})

	t.Run("Canceled Context", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, "", nil)
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := client.FetchStatistics(ctx, "lv1"); err == nil {
			t.Error("expected error for canceled context")
		}
	})
}

func TestRetryTransport(t *testing.T) {
	tc := []struct {
		name      string
		method    string
		wantCalls int32
	}{
		{name: "GET is retried", method: http.MethodGet, wantCalls: 2},
		{name: "PUT is not retried", method: http.MethodPut, wantCalls: 1},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeEnvelope(w, http.StatusServiceUnavailable, "MAINTENANCE", nil)
			}))
			defer srv.Close()

			client := NewNicoliveClient(ClientOpts{
				BaseURL:    srv.URL,
				MaxRetries: 1,
				Timeout:    5 * time.Second,
				Logger:     shared.NewLogger(io.Discard),
			})

			var err error
			if tt.method == http.MethodGet {
				_, err = client.FetchStatistics(context.Background(), "lv1")
			} else {
				_, err = client.ExtendProgram(context.Background(), "lv1")
			}

			if status, ok := StatusCode(err); !ok || status != http.StatusServiceUnavailable {
				t.Errorf("expected status 503 to reach the caller, got %v", err)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, got)
			}
		})
	}
}

func TestIsOwnChannel(t *testing.T) {
	tc := []struct {
		group string
		want  bool
	}{
		{group: "co123", want: true},
		{group: "ch123", want: false},
		{group: "", want: false},
	}

	for _, tt := range tc {
		if got := IsOwnChannel(models.Schedule{SocialGroupID: tt.group}); got != tt.want {
			t.Errorf("IsOwnChannel(%q) = %v, want %v", tt.group, got, tt.want)
		}
	}
}
