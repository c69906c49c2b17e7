package messaging

// AttachmentRequest is an optional payload sent alongside a message, either
// inline as base64 or fetched from a URL.
type AttachmentRequest struct {
	Kind     string `json:"kind"` // "document" or "image"
	Data     string `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// SendMessageRequest represents a request to send a message.
type SendMessageRequest struct {
	Session     string             `json:"session"`
	PhoneNumber string             `json:"phone_number" binding:"required"`
	Message     string             `json:"message"`
	Attachment  *AttachmentRequest `json:"attachment,omitempty"`
}

// SendResult is the structured outcome of a send.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
