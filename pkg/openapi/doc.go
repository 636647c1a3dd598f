// Package openapi builds validable forms from OpenAPI request bodies. Loading
// goes through kin-openapi; the resulting element trees carry rules.Set specs
// derived from the property constraints.
package openapi
