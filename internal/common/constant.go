package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the JWT in the Authorization header.
const BearerPrefix = "Bearer "

// UploadsDir is the flat directory (or key prefix) holding encrypted blobs.
const UploadsDir = "user_files"
