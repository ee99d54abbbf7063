// Package repository implements transactional persistence for users, rooms,
// memberships, invitations, messages, pre-keys, and refresh tokens on top of
// PostgreSQL.
package repository

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

type MessageStatus string

const (
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusEdited  MessageStatus = "edited"
	MessageStatusDeleted MessageStatus = "deleted"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Room struct {
	ID              string
	Name            string
	CreatorID       string
	CreatorUsername string
	AdminID         string
	AdminUsername   string
	CreatedAt       time.Time
}

type RoomMember struct {
	ID            string
	RoomID        string
	UserID        string
	RoomName      string
	Username      string
	JoinedAt      time.Time
	LeftAt        *time.Time
	IsVisible     bool
	LastReadAt    time.Time
	UnreadCount   int
}

type Invitation struct {
	ID               string
	RoomID           string
	RoomName         string
	InviteeID        string
	InviteeUsername  string
	InviterID        string
	InviterUsername  string
	Status           InvitationStatus
	CreatedAt        time.Time
}

type UserMessage struct {
	ID              string
	RoomID          string
	RoomName        string
	AuthorID        *string
	AuthorUsername  *string
	Content         string
	MessageType     MessageType
	Status          MessageStatus
	CreatedAt       time.Time
}

type FileRecord struct {
	ID                string
	EncryptedData     []byte
	EncryptedMetadata []byte
	SizeInBytes       int64
	FileHash          string
	UploadedAt        time.Time
}

type IdentityKey struct {
	UserID         string
	IdentityKey    string
	RegistrationID int
	CreatedAt      time.Time
}

type SignedPreKey struct {
	ID        string
	UserID    string
	KeyID     int
	PublicKey string
	Signature string
	CreatedAt time.Time
}

type OneTimePreKey struct {
	UserID    string
	KeyID     int
	PublicKey string
	CreatedAt time.Time
}

// LeaveOutcome is the result of LeaveRoom, one of three shapes depending on
// whether the leaver was the last active member.
type LeaveOutcome struct {
	// RoomDeleted is true when the leaver was the last active member; the
	// room row no longer exists and PendingInvitations holds every
	// invitation that was pending at the moment of deletion.
	RoomDeleted bool

	// WasMember is false when the leaver had already left, or never
	// joined; no mutation occurred beyond hiding any stale row.
	WasMember bool

	// NewAdminID/NewAdminUsername are set when the leaver was admin and a
	// successor was promoted (room survives, ≥1 member remains).
	NewAdminID       string
	NewAdminUsername string

	PendingInvitations []Invitation
}
