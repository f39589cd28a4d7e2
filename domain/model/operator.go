package model

import "github.com/golang-jwt/jwt"

// OperatorClaims is the JWT claim set carried by operator API tokens.
type OperatorClaims struct {
	jwt.StandardClaims
	Name string `json:"name"`
}
