// Package mocks provides gomock implementations of the session ports.
//
// The mocks are generated with go.uber.org/mock (mockgen) and give tests
// strict call expectations where the hand-written doubles in mocks/auth
// are too forgiving (ordering, exact arguments, "must not be called").
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockTokenStore(ctrl)
//	store.EXPECT().Get(gomock.Any()).Return(domainauth.Credential(""), false)
package mocks

// This creates MockTokenStore with methods: Get, Set, Clear
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_store_mock.go github.com/almazgeobur/felix-portal/internal/ports TokenStore

// This creates MockIdentityClient with methods: Login, FetchIdentity, Logout
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_client_mock.go github.com/almazgeobur/felix-portal/internal/ports IdentityClient

// This creates MockCredentialInspector with methods: Expired
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_inspector_mock.go github.com/almazgeobur/felix-portal/internal/ports CredentialInspector
