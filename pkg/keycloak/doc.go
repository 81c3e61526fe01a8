// Package keycloak is the client for the external identity provider.
//
// The RBAC layer never stores its own copy of groups or memberships; every
// entity it exposes is a derived view over Keycloak's group tree. This
// package speaks two surfaces of a realm:
//
//   - the Admin REST API (/admin/realms/{realm}/...) for group and user
//     management, authenticated with a client-credentials token, and
//   - the OpenID Connect token endpoint for the login/refresh/logout
//     passthrough.
//
// The admin client is a short-lived, per-operation resource: services
// acquire a fresh Client from an AdminSource at the start of each logical
// operation rather than sharing one across requests, so admin-token expiry
// can never bleed between operations.
package keycloak
