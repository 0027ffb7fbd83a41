package metadata

// Entity is embedded anonymously in every mapped struct to carry the
// Entity annotation of spec §6.2 as a struct tag:
//
//	type User struct {
//	    metadata.Entity `orm:"table=users,autoincrement=1000"`
//	    ID    int64  `orm:"pk,autoincrement,type=bigint"`
//	    Email string `orm:"type=varchar,length=255,unique"`
//	}
//
// A type without this embedded marker has no entity annotation at all and
// Describe fails with ormerr.UnknownEntity, mirroring spec §4.1's
// "requested type has no descriptor" failure for a class lacking the
// entity marker. Go has no class-level annotation mechanism, so the marker
// field is the idiomatic stand-in for an @Entity annotation.
type Entity struct{}
