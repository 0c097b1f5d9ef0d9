// Package auth implements credential verification and signed-session-token
// issuance over a pluggable persistence adapter.
//
// The Service is the server-side core: it hashes passwords with bcrypt,
// signs session tokens with HMAC-SHA256, and exposes four operations
// (SignUp, SignIn, GetSession, SignOut) that never panic and surface every
// failure as a structured Error from a fixed taxonomy.
//
// # Token-authoritative sessions
//
// A session token encodes {subject, session id, iat, exp} and is the sole
// externally visible form of the session. GetSession reconstructs the
// Session entirely from token claims plus a fresh user lookup, so the
// server needs no session table. When the store additionally implements
// SessionStore, records are persisted so sign-out can revoke them; a
// Revoker (e.g. the Redis-backed one in integration/database/redis) adds
// token blacklisting on top.
//
// # Setup
//
//	store := pg.NewStore(pool) // or any UserStore implementation
//
//	svc, err := auth.New(store, auth.Config{
//		SecretKey:  os.Getenv("SESSION_JWT_SECRET"),
//		BcryptCost: 10,
//		SessionTTL: 7 * 24 * time.Hour,
//	},
//		auth.WithRevoker(revoker),
//		auth.WithOnSignIn(func(sess auth.Session) {
//			log.Info("signed in", "user_id", sess.UserID)
//		}),
//	)
//
//	result, err := svc.SignUp(ctx, auth.SignUpParams{
//		Email:    "a@b.com",
//		Password: "secret123",
//		Name:     "A",
//	})
//	if err != nil {
//		var authErr auth.Error
//		if errors.As(err, &authErr) {
//			// authErr.Code, authErr.StatusCode
//		}
//	}
//
// # Anti-enumeration invariant
//
// SignIn returns INVALID_CREDENTIALS for both unknown emails and wrong
// passwords. The two paths are deliberately indistinguishable so the API
// cannot be used to probe which addresses have accounts. Preserve this when
// extending the package.
//
// # Concurrency
//
// A Service is immutable after New and safe for concurrent use. It takes no
// in-process locks; uniqueness under concurrent sign-ups is delegated to the
// store's constraints (ErrStoreDuplicateEmail). If the host keeps a Service
// in a package-level variable, replacing that variable concurrently is the
// host's problem, not this package's.
package auth
