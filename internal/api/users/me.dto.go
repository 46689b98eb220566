package users

import "time"

type MeResponse struct {
	User        UserDTO        `json:"user"`
	Submissions SubmissionsDTO `json:"submissions"`
}

type UserDTO struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Lastname    string    `json:"lastname"`
	Username    *string   `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

type SubmissionsDTO struct {
	Total                   int64 `json:"total"`
	Paid                    int64 `json:"paid"`
	Free                    int64 `json:"free"`
	Pending                 int64 `json:"pending"`
	FreeSubmissionAvailable bool  `json:"free_submission_available"`
}
