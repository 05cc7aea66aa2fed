package models

// Channel is the stored record of one chat channel, keyed by its id.
// LatestBatch always refers to a batch that exists in storage and has
// room for at least one more message, except transiently during rollover.
type Channel struct {
	ID          string   `json:"channelID"`
	Name        string   `json:"name"`
	Members     []string `json:"members"`
	LatestBatch int      `json:"latestMessageBatch"`
	Deleted     bool     `json:"deleted"`
	CreatedAt   int64    `json:"timestampCreated"`
}

// HasMember reports whether username is a current channel member.
func (c *Channel) HasMember(username string) bool {
	for _, m := range c.Members {
		if m == username {
			return true
		}
	}
	return false
}

// RemoveMember deletes username from the member list, preserving order.
// It reports whether the member was present.
func (c *Channel) RemoveMember(username string) bool {
	for i, m := range c.Members {
		if m == username {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return true
		}
	}
	return false
}
