/*
Package authsdk provides a client SDK for interacting with the Gatehouse
authentication service.

# Overview

Gatehouse authenticates with email and password, optionally followed by an
emailed second-factor code, and enforces a single active session per
account. The session is carried in an HTTP-only cookie, so the Client keeps
a cookie jar: once Login (or CompleteTwoFactor) succeeds, subsequent calls
on the same Client are authenticated automatically.

	client := authsdk.NewClient("https://auth.example.com")

	resp, err := client.Login(ctx, authsdk.LoginRequest{
		Email:        "alice@example.com",
		Password:     password,
		CaptchaToken: captchaToken,
	})
	if err != nil {
		// *AuthError carries the HTTP status and machine-readable code
	}

	if resp.Status == authsdk.LoginStatusTwoFactorPending {
		resp, err = client.CompleteTwoFactor(ctx, authsdk.TwoFactorRequest{
			ChallengeID: resp.ChallengeID,
			Code:        codeFromEmail,
		})
	}

	// Authenticated calls ride on the session cookie.
	session, err := client.Session(ctx)
	audit, err := client.AuditLog(ctx)

# Error Handling

Every non-success response is returned as an *AuthError whose Code matches
the ErrorCode constants in this package:

	var authErr *authsdk.AuthError
	if errors.As(err, &authErr) && authErr.Code == authsdk.ErrorCodeLockedOut {
		// account is in its lockout window
	}

Because the account's session is single-owner, a login from a second
location invalidates the first: the older client's next call fails with
ErrorCodeInvalidSession and its cookie is cleared by the server.
*/
package authsdk
