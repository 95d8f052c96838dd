package rename_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepkalilabs/marimo-cosmic/internal/domain"
	cerrors "github.com/deepkalilabs/marimo-cosmic/internal/domain/shared/errors"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/kernel"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/logging"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/server"
	"github.com/deepkalilabs/marimo-cosmic/internal/usecases/endpoint"
	"github.com/deepkalilabs/marimo-cosmic/internal/usecases/rename"
)

type fakeConn struct {
	state domain.ConnectionState
	id    domain.SessionID
}

func (c *fakeConn) State() domain.ConnectionState { return c.state }
func (c *fakeConn) SessionID() domain.SessionID   { return c.id }

func newResolver(t *testing.T, base string) *endpoint.Resolver {
	t.Helper()
	r, err := endpoint.NewFromURI(base,
		endpoint.WithDevMode(endpoint.DevModeOff),
		endpoint.WithLogger(logging.NewNop()),
	)
	require.NoError(t, err)
	return r
}

func TestRename_Success(t *testing.T) {
	var got domain.RenameRequest
	var gotHeader, gotPath string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get(domain.SessionIDHeader)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.SuccessResponse{Success: true})
	}))
	defer ts.Close()

	svc := rename.NewService(
		&fakeConn{state: domain.StateOpen, id: "s-1"},
		newResolver(t, ts.URL+"/app/"),
		rename.WithOwner("user-7", "nb-9"),
		rename.WithFilename("untitled.py"),
		rename.WithLogger(logging.NewNop()),
	)
	assert.Equal(t, "untitled.py", svc.Filename())

	name, err := svc.Rename(context.Background(), "analysis.py")
	require.NoError(t, err)

	assert.Equal(t, "analysis.py", name)
	assert.Equal(t, "analysis.py", svc.Filename())
	assert.Equal(t, "/app/api/kernel/rename", gotPath)
	assert.Equal(t, "s-1", gotHeader)
	assert.Equal(t, domain.RenameRequest{Filename: "analysis.py", UserID: "user-7", NotebookID: "nb-9"}, got)
}

func TestRename_NotConnected(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	for _, state := range []domain.ConnectionState{domain.StateConnecting, domain.StateClosing, domain.StateClosed} {
		svc := rename.NewService(&fakeConn{state: state, id: "s-1"}, newResolver(t, ts.URL+"/"),
			rename.WithLogger(logging.NewNop()))

		_, err := svc.Rename(context.Background(), "x.py")
		require.Error(t, err)
		assert.True(t, cerrors.IsNotConnected(err), string(state))
		assert.Contains(t, err.Error(), rename.NotConnectedMessage)
	}

	svc := rename.NewService(nil, newResolver(t, ts.URL+"/"), rename.WithLogger(logging.NewNop()))
	_, err := svc.Rename(context.Background(), "x.py")
	assert.True(t, cerrors.IsNotConnected(err))

	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestRename_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{name: "json detail", status: http.StatusNotFound, body: `{"detail":"session with ID s-1 not found"}`, wantDetail: "session with ID s-1 not found"},
		{name: "plain text", status: http.StatusInternalServerError, body: "kernel crashed\n", wantDetail: "kernel crashed"},
		{name: "empty body", status: http.StatusBadGateway, body: "", wantDetail: "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			svc := rename.NewService(&fakeConn{state: domain.StateOpen, id: "s-1"}, newResolver(t, ts.URL+"/"),
				rename.WithFilename("old.py"), rename.WithLogger(logging.NewNop()))

			_, err := svc.Rename(context.Background(), "new.py")
			require.Error(t, err)
			assert.True(t, cerrors.IsRenameFailed(err))
			assert.Contains(t, err.Error(), tt.wantDetail)
			assert.Equal(t, "old.py", svc.Filename())
		})
	}
}

func TestRename_TransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := ts.URL + "/"
	ts.Close()

	svc := rename.NewService(&fakeConn{state: domain.StateOpen, id: "s-1"}, newResolver(t, base),
		rename.WithLogger(logging.NewNop()))

	_, err := svc.Rename(context.Background(), "new.py")
	require.Error(t, err)
	assert.True(t, cerrors.IsRenameFailed(err))
}

func TestRename_AgainstKernelServer(t *testing.T) {
	ks, ts := server.NewTestServer(server.WithBasePath("/app"), server.WithLogger(logging.NewNop()))
	defer ts.Close()
	defer ks.Shutdown(context.Background())

	resolver := newResolver(t, ts.URL+"/app/?file=draft.py")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := kernel.Dial(ctx, resolver.SessionURL("s-9"), kernel.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer ch.Close()
	require.NoError(t, ch.WaitReady(ctx))

	before, ok := ks.Filename("s-9")
	require.True(t, ok)
	assert.Equal(t, "draft.py", before)

	svc := rename.NewService(ch, resolver, rename.WithFilename(before), rename.WithLogger(logging.NewNop()))
	_, err = svc.Rename(ctx, "final.py")
	require.NoError(t, err)

	after, _ := ks.Filename("s-9")
	assert.Equal(t, "final.py", after)
	assert.Equal(t, "final.py", svc.Filename())

	require.NoError(t, ch.Close())
	_, err = svc.Rename(ctx, "again.py")
	assert.True(t, cerrors.IsNotConnected(err))
}
