package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	in := "jdbc:mysql://root:pw@127.0.0.1:3306/library?useSSL=false&characterEncoding=utf8&serverTimezone=UTC&useUnicode=true"
	got := normalizeMySQLDSN(in, "", "")
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/library?charset=utf8&loc=UTC&parseTime=true&tls=false", got)
}

func TestNormalizeMySQLDSNOverride(t *testing.T) {
	got := normalizeMySQLDSN("mysql://db:3306/lib", "svc", "s3cret")
	assert.Equal(t, "svc:s3cret@tcp(db:3306)/lib?charset=utf8mb4&parseTime=true", got)
}

func TestNormalizeMySQLDSNPassthrough(t *testing.T) {
	raw := "u:p@tcp(localhost:3306)/lib?parseTime=true"
	assert.Equal(t, raw, normalizeMySQLDSN(raw, "x", "y"))
	assert.Equal(t, "", normalizeMySQLDSN("  ", "", ""))
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "root:****@tcp(h:1)/d", maskDSN("root:pw@tcp(h:1)/d"))
	assert.Equal(t, "tcp(h:1)/d", maskDSN("tcp(h:1)/d"))
}

func TestNewGormSQLite(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "t.db"), MaxOpenConns: 1, LogLevel: "silent"})
	require.NoError(t, err)
	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestNewGormUnsupported(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
