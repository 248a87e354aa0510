package wikipedia

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

const (
	// User-Agent parts following the Wikimedia robot policy
	// https://foundation.wikimedia.org/wiki/Policy:Wikimedia_Foundation_User-Agent_Policy
	defaultAppName   = "WildlifeExplorer"
	defaultContact   = "contact: ios-app"
	userAgentLibrary = "Go-HTTP-Client"

	policyURL = "https://foundation.wikimedia.org/wiki/Policy:User-Agent_policy"
)

// buildUserAgent constructs a user-agent string that complies with Wikimedia's robot policy.
// Format: <client name>/<version> (<contact information>) <library/framework name>/<version>
func buildUserAgent(appName, appVersion, contact string) string {
	if appName == "" {
		appName = defaultAppName
	}
	if appVersion == "" {
		appVersion = "unknown"
	}
	if contact == "" {
		contact = defaultContact
	}

	// Format: WildlifeExplorer/1.0.0 (contact: ios-app) Go-HTTP-Client/go1.26.0
	return fmt.Sprintf("%s/%s (%s) %s/%s",
		appName, appVersion, contact, userAgentLibrary, runtime.Version())
}

// checkUserAgentPolicyViolation returns a permanent configuration error when
// Wikimedia rejected the request because of its User-Agent.
func checkUserAgentPolicyViolation(statusCode int, responseBody []byte, userAgent string) error {
	if statusCode != 403 {
		return nil
	}

	bodyStr := string(responseBody)
	if !strings.Contains(bodyStr, "User-Agent") && !strings.Contains(bodyStr, "robot policy") {
		return nil
	}

	excerpt := logger.Truncate(bodyStr, maxErrorBodyBytes)
	GetLogger().Error("Wikipedia blocked request: User-Agent policy violation",
		logger.String("user_agent", userAgent),
		logger.String("policy_url", policyURL),
		logger.String("response_body", excerpt))

	return errors.Newf("wikipedia user-agent policy violation: %s", excerpt).
		Component(componentName).
		Category(errors.CategoryConfiguration).
		Context("operation", "user_agent_policy_violation").
		Context("status_code", statusCode).
		Context("user_agent", userAgent).
		Context("permanent_failure", true).
		Build()
}
