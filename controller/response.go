package controller

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data"`
}

// FailureResponse wraps every error payload.
type FailureResponse struct {
	Success bool      `json:"success" example:"false"`
	Error   ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    ErrorCode `json:"code" example:"FLAG_NOT_FOUND"`
	Message string    `json:"message" example:"Flag not found"`
}

// HealthStatus is the payload of the health endpoint.
type HealthStatus struct {
	Status    string `json:"status" example:"healthy"`
	Service   string `json:"service" example:"cloth"`
	Version   string `json:"version" example:"1.0.0"`
	Timestamp string `json:"timestamp"`
}

func success(data interface{}) SuccessResponse {
	return SuccessResponse{Success: true, Data: data}
}
