package extractor

import (
	"strings"
	"testing"

	"sqlguard/internal/model"
)

const mapperXML = `<?xml version="1.0" encoding="UTF-8"?>
<mapper namespace="com.example.UserMapper">
    <sql id="columns">id, name, status</sql>

    <select id="selectById">
        SELECT <include refid="columns"/> FROM users WHERE id = #{id}
    </select>

    <select id="selectByName">
        SELECT id FROM users
        <where>
            <if test="name != null">AND name = #{name}</if>
        </where>
    </select>

    <update id="touch">
        UPDATE users SET updated_at = NOW() WHERE id = #{id}
    </update>

    <delete id="purge">
        DELETE FROM users WHERE status = #{status}
    </delete>

    <insert id="create">
        INSERT INTO users (name) VALUES (#{name})
    </insert>
</mapper>
`

func TestXMLMapperExtractor_Extract(t *testing.T) {
	contexts, err := NewXMLMapperExtractor().Extract("UserMapper.xml", []byte(mapperXML))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(contexts) != 5 {
		t.Fatalf("Extract() returned %d statements, want 5", len(contexts))
	}

	byID := make(map[string]*model.SqlContext, len(contexts))
	for _, c := range contexts {
		byID[c.StatementID] = c
	}

	sel := byID["com.example.UserMapper.selectById"]
	if sel == nil {
		t.Fatal("selectById not extracted")
	}
	if sel.Type != model.CommandSelect {
		t.Errorf("selectById type = %v", sel.Type)
	}
	if !strings.Contains(sel.SQL, "id, name, status") {
		t.Errorf("include was not resolved: %q", sel.SQL)
	}

	dyn := byID["com.example.UserMapper.selectByName"]
	if dyn == nil {
		t.Fatal("selectByName not extracted")
	}
	if !strings.Contains(dyn.SQL, "<where>") || !strings.Contains(dyn.SQL, `<if test="name != null">`) {
		t.Errorf("dynamic markup not preserved: %q", dyn.SQL)
	}

	if got := byID["com.example.UserMapper.touch"].Type; got != model.CommandUpdate {
		t.Errorf("touch type = %v, want UPDATE", got)
	}
	if got := byID["com.example.UserMapper.purge"].Type; got != model.CommandDelete {
		t.Errorf("purge type = %v, want DELETE", got)
	}
	if got := byID["com.example.UserMapper.create"].Type; got != model.CommandInsert {
		t.Errorf("create type = %v, want INSERT", got)
	}

	if sel.Location.FilePath != "UserMapper.xml" || sel.Location.Line == 0 {
		t.Errorf("Location = %v", sel.Location)
	}
}

func TestXMLMapperExtractor_NoNamespace(t *testing.T) {
	xml := `<mapper><select id="one">SELECT 1</select></mapper>`
	contexts, err := NewXMLMapperExtractor().Extract("m.xml", []byte(xml))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(contexts) != 1 || contexts[0].StatementID != "one" {
		t.Fatalf("contexts = %+v", contexts)
	}
}

func TestXMLMapperExtractor_UnknownInclude(t *testing.T) {
	xml := `<mapper namespace="m"><select id="s">SELECT <include refid="nope"/> FROM t</select></mapper>`
	contexts, err := NewXMLMapperExtractor().Extract("m.xml", []byte(xml))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if strings.Contains(contexts[0].SQL, "<include") {
		t.Errorf("unresolved include left in SQL: %q", contexts[0].SQL)
	}
}
