// Package settings turns raw application configuration into normalized
// connection descriptors.
//
// Configuration arrives in one of three shapes:
//
//   - Single: a MONGODB_SETTINGS key holding one mapping
//   - Multi: a MONGODB_SETTINGS key holding a list of mappings
//   - Flat: prefix-qualified keys such as MONGODB_HOST and MONGODB_DB
//
// Anything that is not a mapping at all is handed back untouched as a
// Passthrough shape.
//
// # Usage
//
//	res, err := settings.Fetch(appConfig, settings.KeepPassword())
//	if err != nil {
//	    return err
//	}
//	for _, d := range res.Descriptors {
//	    registry.Define(d)
//	}
//
// # Normalization
//
// After key extraction every descriptor gets the same defaults: the "db" key
// becomes the database name (default "test"), alias defaults to
// DefaultAlias, host to "localhost", port to 27017 and read preference to
// primary. The "replicaset" key is carried as ReplicaSet and rendered as
// "replicaSet" in Map. Passwords are dropped unless KeepPassword is given.
package settings
