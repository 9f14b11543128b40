package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrUnauthenticated    = errors.New("not signed in")
	ErrRateLimited        = errors.New("too many requests")
	ErrPushUnsupported    = errors.New("push messaging is not supported")
	ErrPermissionDenied   = errors.New("notification permission denied")
	ErrServiceNotOffered  = errors.New("service is not offered by this business")
	ErrInvalidSlot        = errors.New("time slot is not available")
	ErrFederatedDisabled  = errors.New("federated login is not configured")
)

// Notice texts shown to the user.
const (
	MsgLoginSuccess         = "Successfully logged in!"
	MsgLoginFailed          = "Failed to login"
	MsgSignupSuccess        = "Account created successfully!"
	MsgSignupFailed         = "Failed to create account"
	MsgLogoutSuccess        = "Successfully logged out!"
	MsgLogoutFailed         = "Failed to logout"
	MsgGoogleLoginSuccess   = "Successfully logged in with Google!"
	MsgBookingSuccess       = "Appointment booked successfully!"
	MsgBookingFailed        = "Failed to book appointment"
	MsgAppointmentUpdated   = "Appointment updated successfully!"
	MsgAppointmentUpdateErr = "Failed to update appointment"
	MsgAppointmentCancelled = "Appointment cancelled successfully!"
	MsgCancelFailed         = "Failed to cancel appointment"
	MsgBusinessCreated      = "Business created successfully!"
	MsgBusinessCreateFailed = "Failed to create business"
	MsgBusinessUpdated      = "Business updated successfully!"
	MsgBusinessUpdateFailed = "Failed to update business"
	MsgMessageFailed        = "Failed to send message"
	MsgProfileUpdated       = "Profile updated successfully!"
	MsgProfileUpdateFailed  = "Failed to update profile"
	MsgPhotoUpdated         = "Profile picture updated successfully!"
	MsgPhotoUpdateFailed    = "Failed to update profile picture"
	MsgNotificationsEnabled = "Notifications enabled! You'll receive queue updates."
	MsgNotificationsDenied  = "Notification permission denied. You won't receive queue updates."
	MsgNotificationsFailed  = "Failed to enable notifications."
	MsgLocationObtained     = "Location obtained successfully!"
)

// shownAsIs are the errors whose own text is what the user sees.
var shownAsIs = []error{
	ErrInvalidCredentials,
	ErrEmailTaken,
	ErrWeakPassword,
	ErrServiceNotOffered,
	ErrInvalidSlot,
	ErrFederatedDisabled,
}

// UserMessage returns the text shown to the user for err, or fallback when err carries no
// user-facing meaning of its own. Wrapping context never reaches the user.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	for _, sentinel := range shownAsIs {
		if errors.Is(err, sentinel) {
			return capitalize(sentinel.Error())
		}
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in to continue"
	case errors.Is(err, ErrRateLimited):
		return "Too many requests, please slow down"
	case errors.Is(err, ErrPermissionDenied):
		return MsgNotificationsDenied
	}
	return fallback
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
