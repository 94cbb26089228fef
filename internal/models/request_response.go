package models

// Request models
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
	Email    string `json:"email" binding:"omitempty,email"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// TokenRequest carries form-encoded credentials posted to /token.
type TokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// ReassignRequest is a partial update; nil fields are left untouched.
type ReassignRequest struct {
	UserID         *string `json:"user_id"`
	UserName       *string `json:"user_name"`
	Department     *string `json:"department"`
	Location       *string `json:"location"`
	DateOfReturn   *string `json:"date_of_return"`
	DateOfReassign *string `json:"date_of_reassign"`
}

// Updates returns the set fields as a column-to-value map. The asset tag
// itself is not reassignable and is never part of the result.
func (r ReassignRequest) Updates() map[string]string {
	updates := make(map[string]string)
	add := func(column string, value *string) {
		if value != nil {
			updates[column] = *value
		}
	}
	add(ColumnUserID, r.UserID)
	add(ColumnUserName, r.UserName)
	add(ColumnDepartment, r.Department)
	add(ColumnLocation, r.Location)
	add(ColumnDateOfReturn, r.DateOfReturn)
	add(ColumnDateOfReassign, r.DateOfReassign)
	return updates
}

// Response models
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

type MeResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SyncResponse struct {
	Message    string `json:"message"`
	BackupPath string `json:"backup_path"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
