package database

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRejectsBadURLs(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	_, err := Connect("", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not set")

	_, err = Connect("mysql://root@localhost/travel", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgresql://")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "postgres://[HIDDEN]@db:5432/travel", redactURL("postgres://user:pw@db:5432/travel"))
	assert.Equal(t, "postgres://db/travel", redactURL("postgres://db/travel"))
}
