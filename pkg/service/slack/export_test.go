package slack

// Classify exposes the error classifier for tests
var Classify = classify
