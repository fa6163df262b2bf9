package handler

// ErrorResponse единый формат ошибки API
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SlugConflictResponse ответ на попытку занять недоступный слаг
type SlugConflictResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}
