package resource

import (
	"github.com/go-playground/validator/v10"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
)

type EventStatus string

const (
	StatusDraft     EventStatus = "Draft"
	StatusPlanned   EventStatus = "Planned"
	StatusPublished EventStatus = "Published"
	StatusOngoing   EventStatus = "Ongoing"
	StatusCompleted EventStatus = "Completed"
	StatusCancelled EventStatus = "Cancelled"
	StatusArchived  EventStatus = "Archived"
)

var AllEventStatuses = []EventStatus{
	StatusDraft, StatusPlanned, StatusPublished, StatusOngoing, StatusCompleted, StatusCancelled, StatusArchived,
}

func (s EventStatus) Valid() bool {
	for _, st := range AllEventStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Message is the generic answer of update & delete endpoints.
type Message struct {
	Message string `json:"message"`
}

// Event

type (
	Event struct {
		ID             int64          `json:"id"`
		Name           string         `json:"name"`
		Description    string         `json:"description,omitempty"`
		Objective      string         `json:"objective,omitempty"`
		TargetAudience string         `json:"targetAudience,omitempty"`
		Status         EventStatus    `json:"status"`
		IsPublic       bool           `json:"isPublic"`
		StartDate      string         `json:"startDate"`
		EndDate        string         `json:"endDate"`
		School         School         `json:"school"`
		EventType      EventType      `json:"eventType"`
		Organizer      EventOrganizer `json:"organizer"`
		Venue          Venue          `json:"venue"`
	}

	EventOrganizer struct {
		ID                int64  `json:"id"`
		FirstName         string `json:"firstName"`
		LastName          string `json:"lastName"`
		Email             string `json:"email"`
		ProfilePictureURL string `json:"profilePictureUrl"`
		Role              struct {
			RoleName string `json:"roleName"`
		} `json:"role"`
	}

	// EventInput defines what information may be provided to create or update an Event.
	EventInput struct {
		Name           string      `json:"name" validate:"notblank"`
		Description    string      `json:"description"`
		Objective      string      `json:"objective"`
		TargetAudience string      `json:"targetAudience"`
		Status         EventStatus `json:"status" validate:"required,eventstatus"`
		IsPublic       bool        `json:"isPublic"`
		SchoolID       int64       `json:"schoolId" validate:"required"`
		EventTypeID    int64       `json:"eventTypeId" validate:"required"`
		VenueID        int64       `json:"venueId" validate:"required"`
		StartDate      string      `json:"startDate" validate:"notblank"`
		EndDate        string      `json:"endDate" validate:"notblank"`
	}
)

func (e Event) SearchText() []string { return []string{e.Name, e.Description} }

func (in *EventInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Description = core.CleanString(in.Description)
	in.Objective = core.CleanString(in.Objective)
	in.TargetAudience = core.CleanString(in.TargetAudience)
	return validate.Struct(in)
}

// EventType

type (
	EventType struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	EventTypeInput struct {
		Name        string `json:"name" validate:"notblank"`
		Description string `json:"description"`
	}
)

func (et EventType) SearchText() []string { return []string{et.Name, et.Description} }

func (in *EventTypeInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

// School

type (
	School struct {
		ID      int64   `json:"id"`
		Name    string  `json:"name"`
		Address *string `json:"address"`
	}

	SchoolInput struct {
		Name    string `json:"name" validate:"notblank"`
		Address string `json:"address"`
	}
)

func (s School) SearchText() []string {
	if s.Address == nil {
		return []string{s.Name}
	}
	return []string{s.Name, *s.Address}
}

func (in *SchoolInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Address = core.CleanString(in.Address)
	return validate.Struct(in)
}

// Venue & VenuePicture

type (
	Venue struct {
		ID            int64          `json:"id"`
		SchoolID      int64          `json:"schoolId"`
		Name          string         `json:"name"`
		Address       string         `json:"address"`
		Capacity      int            `json:"capacity"`
		IsInternal    bool           `json:"isInternal"`
		VenuePictures []VenuePicture `json:"venuePictures,omitempty"`
	}

	VenueInput struct {
		SchoolID   int64  `json:"schoolId" validate:"required"`
		Name       string `json:"name" validate:"notblank"`
		Address    string `json:"address"`
		Capacity   *int   `json:"capacity" validate:"omitempty,min=0"`
		IsInternal *bool  `json:"isInternal"`
	}

	VenuePicture struct {
		ID         int64  `json:"id"`
		VenueID    int64  `json:"venueId"`
		PictureURL string `json:"pictureUrl"`
	}

	VenuePictureInput struct {
		VenueID    int64  `json:"venueId" validate:"required"`
		PictureURL string `json:"pictureUrl" validate:"required,url"`
	}
)

func (v Venue) SearchText() []string { return []string{v.Name, v.Address} }

func (in *VenueInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Address = core.CleanString(in.Address)
	return validate.Struct(in)
}

func (in *VenuePictureInput) Validate(validate *validator.Validate) error {
	in.PictureURL = core.CleanString(in.PictureURL)
	return validate.Struct(in)
}

// User

type (
	// User is a row of the user listing; Role & School are names only.
	User struct {
		ID                int64   `json:"id"`
		FirstName         string  `json:"firstName"`
		LastName          string  `json:"lastName"`
		Email             string  `json:"email"`
		IsActive          bool    `json:"isActive"`
		ProfilePictureURL *string `json:"profilePictureUrl"`
		PhoneNumber       string  `json:"phoneNumber"`
		School            *string `json:"school"`
		Role              *string `json:"role"`
	}

	// UserDetail is a User with its full Role (permissions included) & School.
	UserDetail struct {
		ID                int64   `json:"id"`
		FirstName         string  `json:"firstName"`
		LastName          string  `json:"lastName"`
		Email             string  `json:"email"`
		IsActive          bool    `json:"isActive"`
		ProfilePictureURL *string `json:"profilePictureUrl"`
		PhoneNumber       string  `json:"phoneNumber"`
		Role              Role    `json:"role"`
		School            School  `json:"school"`
	}

	UserInput struct {
		FirstName         string `json:"firstName" validate:"notblank"`
		LastName          string `json:"lastName" validate:"notblank"`
		Email             string `json:"email" validate:"required,email"`
		Password          string `json:"password,omitempty"`
		PhoneNumber       string `json:"phoneNumber"`
		ProfilePictureURL string `json:"profilePictureUrl" validate:"omitempty,url"`
		IsActive          *bool  `json:"isActive"`
		SchoolID          *int64 `json:"schoolId"`
		RoleID            *int64 `json:"roleId"`
	}

	// CreatedUser is the backend's answer to a user creation.
	CreatedUser struct {
		ID                int64   `json:"id"`
		FirstName         string  `json:"firstName"`
		LastName          string  `json:"lastName"`
		Email             string  `json:"email"`
		PhoneNumber       *string `json:"phoneNumber"`
		ProfilePictureURL *string `json:"profilePictureUrl"`
		IsActive          bool    `json:"isActive"`
		SchoolID          *int64  `json:"schoolId"`
		RoleID            *int64  `json:"roleId"`
	}
)

func (u User) SearchText() []string {
	return []string{u.FirstName + " " + u.LastName, u.Email}
}

func (in *UserInput) Validate(validate *validator.Validate) error {
	in.FirstName = core.CleanString(in.FirstName)
	in.LastName = core.CleanString(in.LastName)
	in.Email = core.CleanString(in.Email, true /* lower */)
	in.PhoneNumber = core.CleanString(in.PhoneNumber)
	in.ProfilePictureURL = core.CleanString(in.ProfilePictureURL)
	return validate.Struct(in)
}

// Role & Permission

type (
	Role struct {
		ID          int64        `json:"id"`
		RoleName    string       `json:"roleName"`
		Description *string      `json:"description"`
		Permissions []Permission `json:"permissions"`
		Users       []User       `json:"users,omitempty"`
	}

	RoleInput struct {
		RoleName    string `json:"roleName" validate:"notblank"`
		Description string `json:"description"`
	}

	Permission struct {
		ID             int64  `json:"id"`
		PermissionName string `json:"permissionName"`
		Description    string `json:"description,omitempty"`
	}

	PermissionInput struct {
		PermissionName string `json:"permissionName" validate:"notblank"`
		Description    string `json:"description"`
	}

	// PermissionAssignment replaces the permission set of a Role.
	PermissionAssignment struct {
		PermissionIDs []int64 `json:"permissionIds"`
	}
)

func (r Role) SearchText() []string {
	if r.Description == nil {
		return []string{r.RoleName}
	}
	return []string{r.RoleName, *r.Description}
}

func (p Permission) SearchText() []string { return []string{p.PermissionName, p.Description} }

func (in *RoleInput) Validate(validate *validator.Validate) error {
	in.RoleName = core.CleanString(in.RoleName)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

func (in *PermissionInput) Validate(validate *validator.Validate) error {
	in.PermissionName = core.CleanString(in.PermissionName)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

// Subscription

type (
	Subscription struct {
		ID        int64  `json:"id"`
		Event     Event  `json:"event"`
		CreatedAt string `json:"createdAt"`
	}

	SubscriptionInput struct {
		EventID int64 `json:"eventId" validate:"required"`
	}
)

func (s Subscription) SearchText() []string { return []string{s.Event.Name, s.Event.Description} }

func (in *SubscriptionInput) Validate(validate *validator.Validate) error {
	return validate.Struct(in)
}
