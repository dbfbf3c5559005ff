package dto

/* =============== REQUESTS =============== */

type LoginRequest struct {
	Handle   string `json:"handle" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
}

/* =============== RESPONSES =============== */

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
}
