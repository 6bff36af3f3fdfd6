package demosite

// Profile selects how the demo target behaves under assessment.
type Profile string

const (
	// ProfileHardened serves security headers, flagged cookies, CSRF
	// tokens and login throttling.
	ProfileHardened Profile = "hardened"

	// ProfileSloppy ships the classic mistakes: no headers, weak cookies,
	// an exposed env file and an unthrottled login.
	ProfileSloppy Profile = "sloppy"
)

// Config configures the demo target.
type Config struct {
	Port    int
	Profile Profile

	// Demo account accepted by the login form.
	Username string
	Password string

	// RateLimitAfter is the failed-attempt count at which the hardened
	// profile starts answering 429.
	RateLimitAfter int
}

// DefaultConfig returns a hardened target on port 9090.
func DefaultConfig() Config {
	return Config{
		Port:           9090,
		Profile:        ProfileHardened,
		Username:       "demo@example.com",
		Password:       "demo-password",
		RateLimitAfter: 5,
	}
}
