package models

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	MessageSending = "sending"
	MessageSent    = "sent"
	MessageFailed  = "failed"

	MessageText = "text"
	MessageFile = "file"

	ConversationPrivate = "private"
	ConversationGroup   = "group"

	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"

	CallAudio = "audio"
	CallVideo = "video"

	PaymentSuccess = "success"
	PaymentCancel  = "cancel"
	PaymentError   = "error"

	TempIDPrefix = "temp_"

	DefaultEventTime = "00:00:00"
)

// Friend list buckets, also used as cache key prefixes.
const (
	BucketFriends = "friends"
	BucketPending = "pendingRequests"
	BucketSent    = "sentRequests"
)

var Buckets = []string{BucketFriends, BucketPending, BucketSent}

type User struct {
	ID               string `json:"userId"`
	Username         string `json:"username"`
	FullName         string `json:"fullName"`
	Email            string `json:"email,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	Role             string `json:"role,omitempty"`
	Bio              string `json:"bio,omitempty"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled,omitempty"`
	IsOnline         bool   `json:"isOnline,omitempty"`
}

func (u *User) fromFields(f fields) {
	u.ID = f.String("userid", "id", "senderid")
	u.Username = f.String("username", "user_name")
	u.FullName = f.String("fullname", "name", "displayname")
	u.Email = f.String("email")
	u.Avatar = f.String("avatar", "image", "userimage", "profilepicture", "avatarurl")
	u.Role = f.String("role")
	u.Bio = f.String("bio")
	u.TwoFactorEnabled = f.Bool("twofactorenabled", "is2faenabled")
	u.IsOnline = f.Bool("isonline", "online")
}

func (u *User) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	u.fromFields(f)
	return nil
}

// DisplayName prefers the full name.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

type Media struct {
	ID   string `json:"mediaId,omitempty"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

func (m *Media) UnmarshalJSON(data []byte) error {
	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		m.URL = url
		return nil
	}
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	m.ID = f.String("mediaid", "imageid", "id")
	m.URL = f.String("url", "mediaurl", "imageurl", "fileurl")
	m.Type = f.String("type", "mediatype")
	return nil
}

type Post struct {
	ID             string    `json:"postId"`
	AuthorID       string    `json:"userId"`
	AuthorName     string    `json:"fullName"`
	AuthorUsername string    `json:"username"`
	AuthorAvatar   string    `json:"userImage,omitempty"`
	Title          string    `json:"title,omitempty"`
	Content        string    `json:"content"`
	Media          []Media   `json:"media,omitempty"`
	LikesCount     int       `json:"likesCount"`
	CommentsCount  int       `json:"commentsCount"`
	SharesCount    int       `json:"sharesCount"`
	BookmarksCount int       `json:"bookmarksCount"`
	Liked          bool      `json:"isLiked"`
	Bookmarked     bool      `json:"isBookmarked"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

func (p *Post) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	p.ID = f.String("postid", "id")
	p.AuthorID = f.String("userid", "authorid")
	p.AuthorName = f.String("fullname", "authorname", "username")
	p.AuthorUsername = f.String("username")
	p.AuthorAvatar = f.String("userimage", "authoravatar", "avatar")
	p.Title = f.String("title")
	p.Content = f.String("content")
	p.LikesCount = f.Int("likescount", "likes")
	p.CommentsCount = f.Int("commentscount", "comments")
	p.SharesCount = f.Int("sharescount", "shares")
	p.BookmarksCount = f.Int("bookmarkscount", "bookmarks")
	p.Liked = f.Bool("isliked", "liked")
	p.Bookmarked = f.Bool("isbookmarked", "bookmarked")
	p.CreatedAt = f.Time("createdat", "created_at")
	p.UpdatedAt = f.Time("updatedat")
	p.Media = nil
	f.Into(&p.Media, "media", "mediafiles", "images")
	if author := (User{}); f.Into(&author, "author", "user") {
		if p.AuthorID == "" {
			p.AuthorID = author.ID
		}
		if p.AuthorName == "" {
			p.AuthorName = author.DisplayName()
		}
		if p.AuthorAvatar == "" {
			p.AuthorAvatar = author.Avatar
		}
	}
	return nil
}

type Comment struct {
	ID              string    `json:"commentId"`
	PostID          string    `json:"postId"`
	ParentCommentID string    `json:"parentCommentId,omitempty"`
	AuthorID        string    `json:"userId"`
	AuthorName      string    `json:"fullName"`
	AuthorAvatar    string    `json:"userImage,omitempty"`
	Content         string    `json:"content"`
	LikesCount      int       `json:"likesCount"`
	Liked           bool      `json:"isLiked"`
	CreatedAt       time.Time `json:"createdAt"`
	Replies         []Comment `json:"replies,omitempty"`
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	c.ID = f.String("commentid", "id")
	c.PostID = f.String("postid")
	c.ParentCommentID = f.String("parentcommentid", "parentid")
	c.AuthorID = f.String("userid", "authorid")
	c.AuthorName = f.String("fullname", "authorname", "username")
	c.AuthorAvatar = f.String("userimage", "avatar")
	c.Content = f.String("content")
	c.LikesCount = f.Int("likescount", "likes")
	c.Liked = f.Bool("isliked", "liked")
	c.CreatedAt = f.Time("createdat")
	c.Replies = nil
	f.Into(&c.Replies, "replies")
	return nil
}

type Conversation struct {
	ID              string    `json:"conversationId"`
	Type            string    `json:"type"`
	Title           string    `json:"title,omitempty"`
	Participants    []User    `json:"participants,omitempty"`
	LastMessage     string    `json:"lastMessage,omitempty"`
	LastMessageAt   time.Time `json:"lastMessageAt,omitempty"`
	LastSenderName  string    `json:"lastSenderName,omitempty"`
	UnreadCount     int       `json:"unreadCount"`
	CreatedByUserID string    `json:"createdBy,omitempty"`
}

func (c *Conversation) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	c.ID = f.String("conversationid", "id")
	c.Type = strings.ToLower(f.String("type", "conversationtype"))
	if c.Type == "" {
		c.Type = ConversationPrivate
	}
	c.Title = f.String("title", "name")
	c.Participants = nil
	f.Into(&c.Participants, "participants", "members")
	c.LastMessage = f.String("lastmessage", "lastmessagecontent")
	c.LastMessageAt = f.Time("lastmessageat", "lastmessagetime", "updatedat")
	c.LastSenderName = f.String("lastsendername", "lastmessagesender")
	c.UnreadCount = f.Int("unreadcount")
	c.CreatedByUserID = f.String("createdby", "creatorid")
	return nil
}

type Message struct {
	ID                 string    `json:"messageId"`
	TempID             string    `json:"tempMessageId,omitempty"`
	ConversationID     string    `json:"conversationId"`
	SenderID           string    `json:"senderId"`
	SenderName         string    `json:"senderName,omitempty"`
	SenderAvatar       string    `json:"senderAvatar,omitempty"`
	Content            string    `json:"content"`
	Type               string    `json:"type"`
	Status             string    `json:"status,omitempty"`
	FileURL            string    `json:"fileUrl,omitempty"`
	FileName           string    `json:"fileName,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	IsDeleted          bool      `json:"isDeleted,omitempty"`
	DeletedForEveryone bool      `json:"deletedForEveryone,omitempty"`
	FailureReason      string    `json:"-"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	m.ID = f.String("messageid", "id")
	m.TempID = f.String("tempmessageid", "tempid")
	m.ConversationID = f.String("conversationid")
	m.SenderID = f.String("senderid", "userid")
	m.SenderName = f.String("sendername", "senderfullname", "senderusername")
	m.SenderAvatar = f.String("senderavatar", "avatar")
	m.Content = f.String("content")
	m.Type = strings.ToLower(f.String("type", "messagetype"))
	if m.Type == "" {
		m.Type = MessageText
	}
	m.Status = strings.ToLower(f.String("status"))
	m.FileURL = f.String("fileurl", "mediaurl")
	m.FileName = f.String("filename")
	m.CreatedAt = f.Time("createdat", "timestamp", "sentat")
	m.IsDeleted = f.Bool("isdeleted", "deleted")
	m.DeletedForEveryone = f.Bool("deletedforeveryone")
	return nil
}

// IsTemp reports whether the message is a local optimistic record.
func (m Message) IsTemp() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

type ScheduleItem struct {
	Time        string `json:"time"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (s *ScheduleItem) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	s.Time = f.String("time", "starttime")
	s.Title = f.String("title", "activity", "name")
	s.Description = f.String("description")
	return nil
}

type Prize struct {
	Place  string `json:"place"`
	Reward string `json:"reward"`
}

func (p *Prize) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Reward = s
		return nil
	}
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	p.Place = f.String("place", "position", "rank")
	p.Reward = f.String("reward", "prize", "amount", "description")
	return nil
}

type Event struct {
	ID             string         `json:"eventId"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Category       string         `json:"category,omitempty"`
	Difficulty     string         `json:"difficulty,omitempty"`
	EventDate      time.Time      `json:"eventDate"`
	EventTime      string         `json:"eventTime"`
	Location       string         `json:"location,omitempty"`
	AttendeesCount int            `json:"attendeesCount"`
	MaxAttendees   int            `json:"maxAttendees"`
	Schedule       []ScheduleItem `json:"schedule,omitempty"`
	Prizes         []Prize        `json:"prizes,omitempty"`
	Languages      []string       `json:"languages,omitempty"`
	Technologies   []string       `json:"technologies,omitempty"`
	IsRegistered   bool           `json:"isRegistered,omitempty"`
}

func (e *Event) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	e.ID = f.String("eventid", "id")
	e.Title = f.String("title", "name")
	e.Description = f.String("description")
	e.Category = f.String("category")
	e.Difficulty = f.String("difficulty")
	e.EventDate = f.Time("eventdate", "date", "startdate")
	e.EventTime = f.String("eventtime", "time")
	if e.EventTime == "" {
		e.EventTime = DefaultEventTime
	}
	e.Location = f.String("location")
	e.AttendeesCount = f.Int("attendeescount", "registeredcount", "currentattendees")
	e.MaxAttendees = f.Int("maxattendees", "capacity")
	e.Schedule, e.Prizes = nil, nil
	f.Into(&e.Schedule, "schedule")
	f.Into(&e.Prizes, "prizes")
	e.Languages = f.Strings("languages", "programminglanguages")
	e.Technologies = f.Strings("technologies", "techstack")
	e.IsRegistered = f.Bool("isregistered", "registered")
	return nil
}

// SpotsLeft is never negative.
func (e Event) SpotsLeft() int {
	if e.MaxAttendees <= e.AttendeesCount {
		return 0
	}
	return e.MaxAttendees - e.AttendeesCount
}

type Friendship struct {
	ID          string    `json:"friendshipId"`
	RequesterID string    `json:"requesterId,omitempty"`
	AddresseeID string    `json:"addresseeId,omitempty"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requestedAt,omitempty"`
	User        User      `json:"user"`
}

func (fr *Friendship) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	fr.ID = f.String("friendshipid", "id")
	fr.RequesterID = f.String("requesterid")
	fr.AddresseeID = f.String("addresseeid")
	fr.Status = strings.ToLower(f.String("status"))
	fr.RequestedAt = f.Time("requestedat", "createdat")
	fr.User = User{}
	if !f.Into(&fr.User, "user", "friend", "requester", "addressee") {
		// Flat rows carry the other party's fields next to the friendship ones.
		fr.User.fromFields(f)
		if f.Has("friendshipid") && fr.User.ID == fr.ID {
			fr.User.ID = f.String("userid")
		}
	}
	return nil
}

type FriendshipBuckets struct {
	Friends         []Friendship `json:"friends"`
	PendingRequests []Friendship `json:"pendingRequests"`
	SentRequests    []Friendship `json:"sentRequests"`
}

func (b *FriendshipBuckets) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*b = FriendshipBuckets{}
	f.Into(&b.Friends, "friends", "accepted")
	f.Into(&b.PendingRequests, "pendingrequests", "pending", "received")
	f.Into(&b.SentRequests, "sentrequests", "sent")
	return nil
}

// Bucket returns the list stored under one of the Bucket* names.
func (b *FriendshipBuckets) Bucket(name string) []Friendship {
	switch name {
	case BucketFriends:
		return b.Friends
	case BucketPending:
		return b.PendingRequests
	case BucketSent:
		return b.SentRequests
	}
	return nil
}

func (b *FriendshipBuckets) SetBucket(name string, list []Friendship) {
	switch name {
	case BucketFriends:
		b.Friends = list
	case BucketPending:
		b.PendingRequests = list
	case BucketSent:
		b.SentRequests = list
	}
}

type Course struct {
	ID          string  `json:"courseId"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Instructor  string  `json:"instructor,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Price       float64 `json:"price"`
	IsFree      bool    `json:"isFree"`
	Level       string  `json:"level,omitempty"`
	Progress    float64 `json:"progress,omitempty"`
	Lessons     int     `json:"lessonsCount,omitempty"`
}

func (c *Course) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	c.ID = f.String("courseid", "id")
	c.Title = f.String("title", "coursename", "name")
	c.Description = f.String("description")
	c.Instructor = f.String("instructorname", "instructor")
	c.Thumbnail = f.String("thumbnail", "thumbnailurl", "imageurl", "image")
	c.Price = f.Float("price")
	c.IsFree = f.Bool("isfree") || (!f.Has("isfree") && c.Price == 0)
	c.Level = f.String("level", "difficulty")
	c.Progress = f.Float("progress")
	c.Lessons = f.Int("lessonscount", "totallessons")
	return nil
}

type Call struct {
	ID             string    `json:"callId"`
	ConversationID string    `json:"conversationId"`
	CallerID       string    `json:"callerId"`
	CallerName     string    `json:"callerName,omitempty"`
	Type           string    `json:"callType"`
	Status         string    `json:"status,omitempty"`
	StartedAt      time.Time `json:"startedAt,omitempty"`
}

func (c *Call) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	c.ID = f.String("callid", "id")
	c.ConversationID = f.String("conversationid")
	c.CallerID = f.String("callerid", "initiatorid")
	c.CallerName = f.String("callername", "initiatorname")
	c.Type = strings.ToLower(f.String("calltype", "type"))
	if c.Type == "" {
		c.Type = CallAudio
	}
	c.Status = strings.ToLower(f.String("status"))
	c.StartedAt = f.Time("startedat", "createdat")
	return nil
}

// PaymentResult is what the payment provider redirects back with.
type PaymentResult struct {
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	CourseID      string `json:"courseId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	PayerID       string `json:"payerId,omitempty"`
}

// AuthResponse covers every login branch: tokens, 2FA challenge, 2FA setup.
type AuthResponse struct {
	Token             string `json:"token"`
	RefreshToken      string `json:"refreshToken,omitempty"`
	User              *User  `json:"user,omitempty"`
	Requires2FA       bool   `json:"requires2FA,omitempty"`
	Requires2FASetup  bool   `json:"requires2FASetup,omitempty"`
	TempToken         string `json:"tempToken,omitempty"`
	AttemptsRemaining int    `json:"attemptsRemaining,omitempty"`
	Message           string `json:"message,omitempty"`
}

func (a *AuthResponse) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	a.Token = f.String("token", "accesstoken")
	a.RefreshToken = f.String("refreshtoken")
	a.Requires2FA = f.Bool("requires2fa", "requirestwofactor")
	a.Requires2FASetup = f.Bool("requires2fasetup")
	a.TempToken = f.String("temptoken")
	a.AttemptsRemaining = f.Int("attemptsremaining")
	a.Message = f.String("message")
	a.User = nil
	var u User
	if f.Into(&u, "user") {
		a.User = &u
	}
	return nil
}

// OAuthConnection is one linked external identity.
type OAuthConnection struct {
	Provider    string    `json:"provider"`
	Email       string    `json:"email,omitempty"`
	ConnectedAt time.Time `json:"connectedAt,omitempty"`
}

func (o *OAuthConnection) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	o.Provider = strings.ToLower(f.String("provider", "providername"))
	o.Email = f.String("email", "provideremail")
	o.ConnectedAt = f.Time("connectedat", "createdat")
	return nil
}
