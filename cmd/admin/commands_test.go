package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dukeofgo/librarius/internal/app"
	"github.com/dukeofgo/librarius/internal/core/config"
	"github.com/dukeofgo/librarius/internal/domain"
)

const brief = `{"records":{"/books/OL1M":{"isbns":["9780441172719","0441172717"],"publishDates":["1990"],
"data":{"title":"dune","authors":[{"name":"Frank Herbert"}],"number_of_pages":535}}}}`

func newCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	ol := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/9780441172719.json") {
			_, _ = w.Write([]byte(brief))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(ol.Close)

	cfg := &config.Config{}
	cfg.App.Name = "librarius"
	cfg.DB.Driver = "sqlite"
	cfg.DB.DSN = filepath.Join(t.TempDir(), "admin.db") + "?_foreign_keys=on"
	cfg.DB.LogLevel = "silent"
	cfg.Storage.Driver = "memory"
	cfg.OpenLibrary.BaseURL = ol.URL
	cfg.JWT.Issuer = "librarius"

	out := &bytes.Buffer{}
	c := &cli{
		out: out,
		open: func(ctx context.Context, _ string) (*app.App, func(), error) {
			a, err := app.New(ctx, cfg, zap.NewNop())
			if err != nil {
				return nil, nil, err
			}
			return a, a.Close, nil
		},
		password: func(string) (string, error) { return "prompted-secret", nil },
	}
	return c, out
}

func run(c *cli, args ...string) error {
	root := newRootCmd(c)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestMigrateAndSuperuser(t *testing.T) {
	c, out := newCLI(t)
	require.NoError(t, run(c, "migrate"))
	assert.Contains(t, out.String(), "migrated")

	assert.Error(t, run(c, "create-superuser", "--email", "not-an-email"))

	require.NoError(t, run(c, "create-superuser", "--email", "Root@X.com"))
	assert.Contains(t, out.String(), "superuser root@x.com created")

	err := run(c, "create-superuser", "--email", "root@x.com", "--password", "another1")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	require.NoError(t, run(c, "set-role", "root@x.com", "admin"))
	assert.Contains(t, out.String(), "root@x.com is now admin")

	assert.Error(t, run(c, "set-role", "root@x.com", "emperor"))
	assert.ErrorIs(t, run(c, "set-role", "ghost@x.com", "user"), domain.ErrUserNotFound)
}

func TestImport(t *testing.T) {
	c, out := newCLI(t)
	require.NoError(t, run(c, "migrate"))

	list := filepath.Join(t.TempDir(), "isbns.txt")
	require.NoError(t, os.WriteFile(list, []byte("# wishlist\n978-0-441-17271-9\n\n"), 0o600))

	require.NoError(t, run(c, "import", "--file", list))
	assert.Contains(t, out.String(), "created 1, skipped 0, failed 0")

	out.Reset()
	err := run(c, "import", "9780441172719", "9780000000002")
	require.Error(t, err)
	assert.Contains(t, out.String(), "failed  9780000000002")
	assert.Contains(t, out.String(), "created 0, skipped 1, failed 1")

	assert.Error(t, run(c, "import"))
}
