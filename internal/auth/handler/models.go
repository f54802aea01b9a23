package handler

import "github.com/dgrijalva/jwt-go"

// User is the registration request body. Role is never client-supplied;
// everyone starts out as a viewer and an admin promotes analysts later.
type User struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Login is the credential pair presented at /login.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserAccessAndRole is the admin request toggling a user's access or
// moving them between the viewer, analyst and admin roles.
type UpdateUserAccessAndRole struct {
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
	Role     string `json:"role"`
}

// LoginResponse carries the session token plus the identity the dashboard
// shows in its header.
type LoginResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

// UserListingResponse is one row of the admin user listing.
type UserListingResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
	Role      string `json:"role"`
}

// Claims is the JWT payload issued at login and checked by the auth
// middleware on every request.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}
