package rest_test

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/supp-dex/instance-api/internal/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
