// Package domain holds the core entity types shared by the repository and
// service layers. Entities map one-to-one onto database rows; business rules
// that span entities live in the service layer.
package domain
