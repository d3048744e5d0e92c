package exporter

import "github.com/polku/rest_connector/internal/testutil"

// Shared test constants - aliased from testutil
const (
	contentTypeHeader   = testutil.ContentTypeHeader
	authorizationHeader = testutil.AuthorizationHeader
	contentTypeJSON     = testutil.ContentTypeJSON
	testAPIKey          = testutil.TestAPIKey
	testTemplate        = testutil.TestTemplate

	testPathItems   = testutil.TestPathItems
	testPathOrders  = testutil.TestPathOrders
	testPathMissing = testutil.TestPathMissing
	testPathBroken  = testutil.TestPathBroken
	testPathTeapot  = testutil.TestPathTeapot

	testErrorUnexpected = testutil.TestErrorUnexpected
)
