package domain

// KeyPrefix namespaces every tariffd key in the shared store.
const KeyPrefix = "tariffd:"
