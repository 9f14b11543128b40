package models

// Appointment statuses. Any write may set any of them; there is no transition table.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Business categories.
const (
	CategorySalon  = "salon"
	CategorySpa    = "spa"
	CategoryTattoo = "tattoo"
	CategoryBarber = "barber"
	CategoryOther  = "other"

	// CategoryAll is the filter value that matches every category.
	CategoryAll = "all"
)

const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

const (
	// ChatIDSeparator joins the two sorted participant ids of a chat.
	ChatIDSeparator = "_"

	// DefaultNotificationTitle is used when a push message arrives without a title.
	DefaultNotificationTitle = "Queue Update"

	// DefaultUserName is written into appointments when the identity has neither name nor email.
	DefaultUserName = "User"

	// ProfileImagePrefix is the storage folder for profile photos.
	ProfileImagePrefix = "profile-images/"
)

const (
	// SlotStartHour первый доступный слот
	SlotStartHour = 9
	// SlotEndHour последний слот начинается в SlotEndHour:30
	SlotEndHour = 18
	// SlotStepMinutes шаг слотов
	SlotStepMinutes = 30
	// BookingWindowDays количество дат, предлагаемых для записи
	BookingWindowDays = 14

	// DefaultRadiusKm радиус поиска бизнесов рядом
	DefaultRadiusKm = 5.0

	// RateLimitMessages количество сообщений чата в окне
	RateLimitMessages = 30
	// RateLimitWindow окно ограничения частоты сообщений, секунды
	RateLimitWindow = 60

	// DefaultPreferencesTTL время жизни настроек пользователя в Redis (0 = бессрочно)
	DefaultPreferencesTTL = 0
)

var appointmentStatuses = map[string]bool{
	StatusPending:    true,
	StatusConfirmed:  true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

var categories = map[string]bool{
	CategorySalon:  true,
	CategorySpa:    true,
	CategoryTattoo: true,
	CategoryBarber: true,
	CategoryOther:  true,
}

// IsValidStatus reports whether s is one of the five appointment statuses.
func IsValidStatus(s string) bool {
	return appointmentStatuses[s]
}

// IsValidCategory reports whether c is a known business category.
func IsValidCategory(c string) bool {
	return categories[c]
}

func IsValidMessageType(t string) bool {
	switch t {
	case MessageText, MessageImage, MessageFile:
		return true
	}
	return false
}
