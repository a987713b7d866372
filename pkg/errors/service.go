package errors

// ServiceError should be used to return error messages in JSON format.
type ServiceError struct {
	Message string `json:"message"`
	// Hash is set when the error refers to a submitted transaction.
	Hash string `json:"hash,omitempty"`
}
