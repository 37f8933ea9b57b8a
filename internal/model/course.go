package model

import "time"

// TitleItem is a single bullet point (benefit or prerequisite).
type TitleItem struct {
	Title string `json:"title"`
}

// Link is an external resource attached to a course section.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Question is a learner question on a section, with threaded replies.
type Question struct {
	ID       string    `json:"_id"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	Text     string    `json:"question"`
	Replies  []Reply   `json:"questionReplies"`
	AskedAt  time.Time `json:"askedAt"`
}

// Reply is an answer on a question or a staff reply on a review.
type Reply struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	RepliedAt time.Time `json:"repliedAt"`
}

// Review is a purchaser's rating and comment.  Rating feeds the course's
// derived ratings average.
type Review struct {
	ID       string    `json:"_id"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	Rating   float64   `json:"rating"`
	Comment  string    `json:"comment"`
	Replies  []Reply   `json:"commentReplies"`
	PostedAt time.Time `json:"postedAt"`
}

// Section is one unit of course content.  VideoURL, Suggestions, Questions
// and Links are only served to purchasers; public reads get a sanitized copy.
type Section struct {
	ID           string     `json:"_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	VideoURL     string     `json:"videoUrl,omitempty"`
	VideoLength  int        `json:"videoLength"`
	VideoPlayer  string     `json:"videoPlayer"`
	VideoSection string     `json:"videoSection"`
	Suggestions  string     `json:"suggestions,omitempty"`
	Questions    []Question `json:"questions,omitempty"`
	Links        []Link     `json:"links,omitempty"`
}

// Course mirrors the 'courses' table.  Sub-documents (reviews, sections,
// bullet lists) live in JSON columns; Ratings is derived from Reviews and
// recomputed exactly (sum/count) on every new review.
type Course struct {
	ID             string      `json:"_id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Price          float64     `json:"price"`
	EstimatedPrice float64     `json:"estimatedPrice,omitempty"`
	Thumbnail      Avatar      `json:"thumbnail"`
	Tags           string      `json:"tags"`
	Level          string      `json:"level"`
	DemoURL        string      `json:"demoUrl"`
	Benefits       []TitleItem `json:"benefits"`
	Prerequisites  []TitleItem `json:"prerequisites"`
	Reviews        []Review    `json:"reviews"`
	Sections       []Section   `json:"courseData"`
	Ratings        float64     `json:"ratings"`
	Purchased      int         `json:"purchased"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Sanitized returns a copy safe for unauthenticated catalog reads: section
// video URLs, suggestions, question threads and links are stripped.
func (c Course) Sanitized() Course {
	out := c
	out.Sections = make([]Section, len(c.Sections))
	for i, s := range c.Sections {
		s.VideoURL = ""
		s.Suggestions = ""
		s.Questions = nil
		s.Links = nil
		out.Sections[i] = s
	}
	return out
}

// RecomputeRatings sets Ratings to the exact mean of all review ratings.
// Zero reviews leave the average at zero.
func (c *Course) RecomputeRatings() {
	if len(c.Reviews) == 0 {
		c.Ratings = 0
		return
	}
	var sum float64
	for _, r := range c.Reviews {
		sum += r.Rating
	}
	c.Ratings = sum / float64(len(c.Reviews))
}
