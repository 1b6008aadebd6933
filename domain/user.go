package domain

// User is the identity behind a verified token. Account management lives
// outside this service; the relay only ever reads users.
type User struct {
	Id       string
	Username string
}

// Room is the metadata record for a collaboration room. Rooms are created by
// an external service before any relay activity.
type Room struct {
	Id      string
	Slug    string
	AdminId string
}
