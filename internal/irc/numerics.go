package irc

// Symbolic names for numeric replies the engine knows about. Numerics that
// are not listed keep their three digits as the command name.
const (
	RplWelcome         = "rpl_welcome"
	RplYourHost        = "rpl_yourhost"
	RplCreated         = "rpl_created"
	RplMyInfo          = "rpl_myinfo"
	RplISupport        = "rpl_isupport"
	RplAway            = "rpl_away"
	RplWhoisUser       = "rpl_whoisuser"
	RplWhoisServer     = "rpl_whoisserver"
	RplWhoisOperator   = "rpl_whoisoperator"
	RplWhoReply        = "rpl_whoreply"
	RplWhoisIdle       = "rpl_whoisidle"
	RplEndOfWhois      = "rpl_endofwhois"
	RplWhoisChannels   = "rpl_whoischannels"
	RplWhoisLoggedIn   = "rpl_whoisloggedin"
	RplWhoisHost       = "rpl_whoishost"
	RplWhoisSecure     = "rpl_whoissecure"
	RplListStart       = "rpl_liststart"
	RplList            = "rpl_list"
	RplListEnd         = "rpl_listend"
	RplChannelModeIs   = "rpl_channelmodeis"
	RplCreationTime    = "rpl_creationtime"
	RplTopic           = "rpl_topic"
	RplTopicWhoTime    = "rpl_topicwhotime"
	RplNamReply        = "rpl_namreply"
	RplEndOfNames      = "rpl_endofnames"
	RplMotd            = "rpl_motd"
	RplMotdStart       = "rpl_motdstart"
	RplEndOfMotd       = "rpl_endofmotd"
	RplYoureOper       = "rpl_youreoper"
	RplSaslSuccess     = "rpl_saslsuccess"
	ErrNoMotd          = "err_nomotd"
	ErrErroneusNick    = "err_erroneusnickname"
	ErrNicknameInUse   = "err_nicknameinuse"
	ErrUnavailResource = "err_unavailresource"
	ErrNoOperHost      = "err_nooperhost"
	ErrSaslFail        = "err_saslfail"
	ErrSaslTooLong     = "err_sasltoolong"
)

var numerics = map[string]string{
	"001": RplWelcome,
	"002": RplYourHost,
	"003": RplCreated,
	"004": RplMyInfo,
	"005": RplISupport,
	"200": "rpl_tracelink",
	"201": "rpl_traceconnecting",
	"202": "rpl_tracehandshake",
	"203": "rpl_traceunknown",
	"204": "rpl_traceoperator",
	"205": "rpl_traceuser",
	"206": "rpl_traceserver",
	"208": "rpl_tracenewtype",
	"211": "rpl_statslinkinfo",
	"212": "rpl_statscommands",
	"213": "rpl_statscline",
	"214": "rpl_statsnline",
	"215": "rpl_statsiline",
	"216": "rpl_statskline",
	"218": "rpl_statsyline",
	"219": "rpl_endofstats",
	"221": "rpl_umodeis",
	"241": "rpl_statslline",
	"242": "rpl_statsuptime",
	"243": "rpl_statsoline",
	"244": "rpl_statshline",
	"250": "rpl_statsconn",
	"251": "rpl_luserclient",
	"252": "rpl_luserop",
	"253": "rpl_luserunknown",
	"254": "rpl_luserchannels",
	"255": "rpl_luserme",
	"256": "rpl_adminme",
	"257": "rpl_adminloc1",
	"258": "rpl_adminloc2",
	"259": "rpl_adminemail",
	"261": "rpl_tracelog",
	"265": "rpl_localusers",
	"266": "rpl_globalusers",
	"300": "rpl_none",
	"301": RplAway,
	"302": "rpl_userhost",
	"303": "rpl_ison",
	"305": "rpl_unaway",
	"306": "rpl_nowaway",
	"311": RplWhoisUser,
	"312": RplWhoisServer,
	"313": RplWhoisOperator,
	"314": "rpl_whowasuser",
	"315": "rpl_endofwho",
	"317": RplWhoisIdle,
	"318": RplEndOfWhois,
	"319": RplWhoisChannels,
	"321": RplListStart,
	"322": RplList,
	"323": RplListEnd,
	"324": RplChannelModeIs,
	"329": RplCreationTime,
	"330": RplWhoisLoggedIn,
	"331": "rpl_notopic",
	"332": RplTopic,
	"333": RplTopicWhoTime,
	"341": "rpl_inviting",
	"342": "rpl_summoning",
	"351": "rpl_version",
	"352": RplWhoReply,
	"353": RplNamReply,
	"364": "rpl_links",
	"365": "rpl_endoflinks",
	"366": RplEndOfNames,
	"367": "rpl_banlist",
	"368": "rpl_endofbanlist",
	"369": "rpl_endofwhowas",
	"371": "rpl_info",
	"372": RplMotd,
	"374": "rpl_endofinfo",
	"375": RplMotdStart,
	"376": RplEndOfMotd,
	"378": RplWhoisHost,
	"381": RplYoureOper,
	"382": "rpl_rehashing",
	"391": "rpl_time",
	"392": "rpl_usersstart",
	"393": "rpl_users",
	"394": "rpl_endofusers",
	"395": "rpl_nousers",
	"401": "err_nosuchnick",
	"402": "err_nosuchserver",
	"403": "err_nosuchchannel",
	"404": "err_cannotsendtochan",
	"405": "err_toomanychannels",
	"406": "err_wasnosuchnick",
	"407": "err_toomanytargets",
	"409": "err_noorigin",
	"411": "err_norecipient",
	"412": "err_notexttosend",
	"413": "err_notoplevel",
	"414": "err_wildtoplevel",
	"421": "err_unknowncommand",
	"422": ErrNoMotd,
	"423": "err_noadmininfo",
	"424": "err_fileerror",
	"431": "err_nonicknamegiven",
	"432": ErrErroneusNick,
	"433": ErrNicknameInUse,
	"436": "err_nickcollision",
	"437": ErrUnavailResource,
	"441": "err_usernotinchannel",
	"442": "err_notonchannel",
	"443": "err_useronchannel",
	"444": "err_nologin",
	"445": "err_summondisabled",
	"446": "err_usersdisabled",
	"451": "err_notregistered",
	"461": "err_needmoreparams",
	"462": "err_alreadyregistred",
	"463": "err_nopermforhost",
	"464": "err_passwdmismatch",
	"465": "err_yourebannedcreep",
	"467": "err_keyset",
	"471": "err_channelisfull",
	"472": "err_unknownmode",
	"473": "err_inviteonlychan",
	"474": "err_bannedfromchan",
	"475": "err_badchannelkey",
	"481": "err_noprivileges",
	"482": "err_chanoprivsneeded",
	"483": "err_cantkillserver",
	"491": ErrNoOperHost,
	"501": "err_umodeunknownflag",
	"502": "err_usersdontmatch",
	"671": RplWhoisSecure,
	"900": "rpl_loggedin",
	"903": RplSaslSuccess,
	"904": ErrSaslFail,
	"905": ErrSaslTooLong,
	"906": "err_saslaborted",
	"907": "err_saslalready",
}
