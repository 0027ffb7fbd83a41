package metadata

import (
	"reflect"
	"testing"

	"github.com/rediwo/mysqlorm/ormerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Profile struct {
	Entity `orm:"table=profiles"`
	ID     int64  `orm:"pk,autoincrement,type=bigint"`
	Bio    string `orm:"type=text,nullable"`
	User   *User  `orm:"relation=oneToOne,mappedby=Profile"`
}

type User struct {
	Entity  `orm:"table=users,autoincrement=1000"`
	ID      int64    `orm:"pk,autoincrement,type=bigint"`
	Email   string   `orm:"type=varchar,length=255,unique"`
	Profile *Profile `orm:"relation=oneToOne"`
	Posts   []*Post  `orm:"relation=oneToMany,mappedby=Author"`
}

type Post struct {
	Entity `orm:"table=posts"`
	ID     int64  `orm:"pk,autoincrement,type=bigint"`
	Title  string `orm:"type=varchar,length=255"`
	Author *User  `orm:"relation=manyToOne,ondelete=CASCADE"`
}

type Tag struct {
	Entity `orm:"table=tags"`
	ID     int64   `orm:"pk,autoincrement,type=bigint"`
	Name   string  `orm:"type=varchar,length=64"`
	Posts  []*Post `orm:"relation=manyToMany"`
}

type Unmapped struct {
	ID int64
}

type BadEntity struct {
	Entity `orm:"table=bad"`
	ID     int64 `orm:"pk,autoincrement,type=bigint"`
	Weird  string `orm:"bogus=yes"`
}

func TestRegistry_DescribeSimpleEntity(t *testing.T) {
	r := New()
	d, err := r.Describe(reflect.TypeOf(Tag{}))
	require.NoError(t, err)
	assert.Equal(t, "Tag", d.ClassName)
	assert.Equal(t, "tags", d.TableName)

	pk, ok := d.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "ID", pk.PropertyName)
	assert.True(t, pk.AutoIncrement)
}

func TestRegistry_DescribeCyclicRelation(t *testing.T) {
	r := New()
	user, err := r.Describe(reflect.TypeOf(User{}))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), user.AutoIncrementSeed)

	rel, ok := user.Relation("Profile")
	require.True(t, ok)
	assert.Equal(t, "Profile", rel.TargetEntity)
	assert.True(t, rel.OwningSide)

	fk, ok := user.ForeignKeys["Profile"]
	require.True(t, ok)
	assert.Equal(t, "Profile", fk.ReferencedEntity)

	profile, err := r.GetDescriptor("Profile")
	require.NoError(t, err)
	inverse, ok := profile.Relation("User")
	require.True(t, ok)
	assert.False(t, inverse.OwningSide)
	assert.Equal(t, "Profile", inverse.MappedBy)
}

func TestRegistry_ManyToOneForeignKeyName(t *testing.T) {
	r := New()
	_, err := r.Describe(reflect.TypeOf(Post{}))
	require.NoError(t, err)

	post, err := r.GetDescriptor("Post")
	require.NoError(t, err)
	fk, ok := post.ForeignKeys["Author"]
	require.True(t, ok)
	assert.Equal(t, "fk_posts_author_id_users", fk.ConstraintName)
	assert.Equal(t, ActionCascade, fk.OnDelete)
}

func TestRegistry_ManyToMany(t *testing.T) {
	r := New()
	d, err := r.Describe(reflect.TypeOf(Tag{}))
	require.NoError(t, err)
	rel, ok := d.Relation("Posts")
	require.True(t, ok)
	assert.Equal(t, "posts_tags", rel.JoinTable)
	assert.Equal(t, "tag_id", rel.JoinProperty)
	assert.Equal(t, "post_id", rel.InverseJoin)
}

func TestRegistry_UnknownAttributeIsHardError(t *testing.T) {
	r := New()
	_, err := r.Describe(reflect.TypeOf(BadEntity{}))
	require.Error(t, err)
	var oe *ormerr.Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, ormerr.MappingError, oe.Kind)
}

func TestRegistry_RegisterTypesSkipsUnmapped(t *testing.T) {
	r := New()
	count, err := r.RegisterTypes(User{}, Unmapped{}, Tag{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	all := r.GetAllDescriptors()
	names := make([]string, 0, len(all))
	for _, d := range all {
		names = append(names, d.ClassName)
	}
	assert.Contains(t, names, "User")
	assert.Contains(t, names, "Tag")
}

func TestRegistry_GetDescriptorUnknown(t *testing.T) {
	r := New()
	_, err := r.GetDescriptor("Nope")
	require.Error(t, err)
	var oe *ormerr.Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, ormerr.UnknownEntity, oe.Kind)
}
