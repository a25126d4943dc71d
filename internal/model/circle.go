package model

// CircleMember is a user in the caller's household.
type CircleMember struct {
	ID          int    `json:"id,omitempty"`
	UserID      int    `json:"userId"`
	CircleID    int    `json:"circleId,omitempty"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	IsActive    bool   `json:"isActive"`
}

// Name returns the display name, or the username when no display name is set.
func (m CircleMember) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

type Label struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	CreatedBy int    `json:"createdBy,omitempty"`
}
