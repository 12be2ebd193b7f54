package crew

// Materialize 将分配对与详细资料关联。
// 每个 pair 恰好产出一个组员且保持顺序；资料缺失时使用占位值，不丢弃
func Materialize(pairs []RolePair, profiles []Profile) []Member {
	byID := make(map[string]*Profile, len(profiles))
	for i := range profiles {
		if _, seen := byID[profiles[i].ID]; !seen {
			byID[profiles[i].ID] = &profiles[i]
		}
	}

	members := make([]Member, 0, len(pairs))
	for _, p := range pairs {
		members = append(members, MemberFromProfile(p.User, p.Role, byID[p.User.ID]))
	}
	return members
}

// MemberFromProfile 构建单个组员，profile 可为 nil
func MemberFromProfile(user UserRef, role RoleRef, profile *Profile) Member {
	m := Member{
		StudentID:   user.ID,
		DisplayName: user.DisplayName(),
		Username:    user.Username,
		RoleID:      role.ID,
		RoleName:    role.Name,
		ClassName:   fallbackValue,
		StabName:    fallbackValue,
	}
	if profile == nil {
		if m.DisplayName == "" {
			m.DisplayName = fallbackValue
		}
		return m
	}

	if name := profile.DisplayName(); name != "" {
		m.DisplayName = name
	}
	if profile.Username != "" {
		m.Username = profile.Username
	}
	if profile.ClassName != "" {
		m.ClassName = profile.ClassName
	}
	if profile.StabName != "" {
		m.StabName = profile.StabName
	}
	m.Email = profile.Email
	m.Phone = profile.Phone
	if m.DisplayName == "" {
		m.DisplayName = fallbackValue
	}
	return m
}
