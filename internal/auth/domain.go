package auth

// AccessClaims is the platform session token payload. Only the subject (user
// id) is interpreted here; issuing and refreshing sessions happens elsewhere.
type AccessClaims struct {
	Sub string `json:"sub"` // user id
	Iat int64  `json:"iat"` // issued at
	Exp int64  `json:"exp"` // expires at
}
