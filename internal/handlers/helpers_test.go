package handlers_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/diewo77/go-tutoring/internal/services"
	"github.com/stretchr/testify/require"
)

func idstr(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := services.ParseSessionDate(s)
	require.NoError(t, err)
	return d
}
