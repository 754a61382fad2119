// Package mocks provides shared test doubles for the service interfaces the
// HTTP layer depends on.
//
// MockJWTService uses function fields with default return values:
//
//	jwtService := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return &auth.Claims{UserID: userID}, nil
//	    },
//	}
//
// MockModerationService is a testify mock; set expectations with On and
// check them with AssertExpectations.
package mocks
