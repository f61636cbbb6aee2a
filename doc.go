// Package authcore implements user registration, login, email verification
// and federated (Google, Facebook, LinkedIn) sign-in for a small backend
// service, together with a role/permission CRUD resource.
//
// # Architecture
//
// User: a single account keyed by email. Exactly one user exists per email
// address. A user created by local registration holds a bcrypt password
// hash and starts unverified; a user created by a federated login is
// trusted as verified from the start.
//
// Provider link: a (subject id, access token) pair recorded on the user for
// each external provider that has authenticated them. Links accumulate over
// time; they are added independently and never overwrite local credentials.
//
// Reconciler: maps every authentication attempt - local credentials, a
// verification token, or a normalized provider assertion - to exactly one
// user, creating or linking as needed. Uniqueness races between concurrent
// writes for the same email are resolved by the store's unique-email index:
// the loser of the race re-reads the row and continues as a link/login.
//
// # Basic Usage
//
// Build stores, the reconciler and the HTTP server:
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//
//	tokens := &authcore.TokenService{Secret: []byte(secret), Issuer: "authcore"}
//	rec := &authcore.Reconciler{
//	    Users:      gormstore.NewUserStore(db),
//	    Tokens:     tokens,
//	    Mailer:     &authcore.ConsoleEmailSender{},
//	    BackendURL: "https://api.yourapp.com",
//	}
//	srv := authcore.NewServer(rec, tokens, gormstore.NewRoleStore(db), cfg)
//	http.ListenAndServe(":4000", srv.Handler())
//
// OAuth providers are mounted by the server from the oauth2 subpackage; each
// provider resolves its callback into an Identity assertion which the
// reconciler consumes. See the oauth2 package for the provider contract.
package authcore
