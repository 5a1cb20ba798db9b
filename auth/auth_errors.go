package auth

// User-facing messages rendered by the auth workflows.
const (
	MsgInvalidEmail         = "Please enter a valid email"
	MsgPasswordTooShort     = "Password must be at least 6 characters long"
	MsgPasswordsDontMatch   = "Passwords do not match"
	MsgPasswordRequired     = "Password is required"
	MsgPasswordTooLong      = "Password must be at most 72 bytes long"
	MsgEmailRegistered      = "Email already registered"
	MsgInvalidCredentials   = "Invalid email or password"
	MsgRegistrationComplete = "Registration successful! You can now log in."
)
