package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/payflow/internal/config"
	"github.com/smallbiznis/payflow/internal/credential"
)

type validateCredentialsRequest struct {
	// Environment defaults to the configured gateway environment.
	Environment string `json:"environment"`
}

type validateCredentialsResponse struct {
	Valid  bool               `json:"valid"`
	Issues []credential.Issue `json:"issues"`
}

// ValidateCredentials runs the static credential checks and, when the set is
// complete, a live round-trip against the provider.
func (s *Server) ValidateCredentials(c *gin.Context) {
	var req validateCredentialsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	environment := req.Environment
	if environment == "" {
		environment = s.settings.Current().Environment
	}
	if environment != config.EnvironmentLive && environment != config.EnvironmentSandbox {
		AbortWithError(c, newValidationError("environment", "invalid_environment", "environment must be live or sandbox"))
		return
	}

	// Incomplete sets still go through validation so every missing field is
	// reported at once.
	cred, _ := s.credResolver.ForEnvironment(environment)
	issues := s.credVal.Validate(c.Request.Context(), cred)

	c.JSON(http.StatusOK, validateCredentialsResponse{
		Valid:  !credential.HasErrors(issues),
		Issues: issues,
	})
}
