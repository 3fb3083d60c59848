package transport

// BatchDeleteRequest lists the routes to hard-delete in one call.
type BatchDeleteRequest struct {
	RouteIDs []int64 `json:"routeIds"`
}

// RollbackResponse reports the outcome of a rollback-delete.
type RollbackResponse struct {
	Message string `json:"message"`
}
